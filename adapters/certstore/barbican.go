package certstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack/keymanager/v1/containers"
	"github.com/gophercloud/gophercloud/openstack/keymanager/v1/secrets"

	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/internal/logging"
)

// barbicanStore keeps each envelope as a certificate container referencing
// one secret per component. The cert_ref is the container ref.
type barbicanStore struct {
	client *gophercloud.ServiceClient
}

func (s *barbicanStore) Store(ctx context.Context, env *model.CertEnvelope, opts *model.CertStoreOpts) (string, error) {
	name := ""
	if opts != nil {
		name = opts.Name
	}

	components := []struct {
		refName string
		payload string
	}{
		{"certificate", env.Certificate},
		{"private_key", env.PrivateKey},
		{"intermediates", env.Intermediates},
		{"private_key_passphrase", env.PrivateKeyPassphrase},
	}

	var stored []string
	var refs []containers.SecretRef
	for _, c := range components {
		if c.payload == "" {
			continue
		}
		secret, err := secrets.Create(s.client, secrets.CreateOpts{
			Name:               name + "/" + c.refName,
			Payload:            c.payload,
			PayloadContentType: "text/plain",
			SecretType:         secrets.OpaqueSecret,
		}).Extract()
		if err != nil {
			s.rollback(ctx, stored)
			return "", fmt.Errorf("%w: store %s: %v", model.ErrCertificateStorage, c.refName, err)
		}
		stored = append(stored, secret.SecretRef)
		refs = append(refs, containers.SecretRef{Name: c.refName, SecretRef: secret.SecretRef})
	}

	container, err := containers.Create(s.client, containers.CreateOpts{
		Type:       containers.CertificateContainer,
		Name:       name,
		SecretRefs: refs,
	}).Extract()
	if err != nil {
		s.rollback(ctx, stored)
		return "", fmt.Errorf("%w: create container: %v", model.ErrCertificateStorage, err)
	}
	return container.ContainerRef, nil
}

// rollback deletes already-stored secrets after a partial failure, best
// effort.
func (s *barbicanStore) rollback(ctx context.Context, secretRefs []string) {
	log := logging.FromContext(ctx)
	for _, ref := range secretRefs {
		if err := secrets.Delete(s.client, uuidFromRef(ref)).ExtractErr(); err != nil {
			log.Warn(ctx, "orphaned secret left behind after rollback",
				"secret_ref", ref, "error", err)
		}
	}
}

func (s *barbicanStore) Get(ctx context.Context, certRef string, checkOnly bool) (*model.CertEnvelope, error) {
	container, err := containers.Get(s.client, uuidFromRef(certRef)).Extract()
	if err != nil {
		if isGone(err) {
			return nil, fmt.Errorf("%w: cert ref %s", model.ErrNotFound, certRef)
		}
		return nil, fmt.Errorf("%w: get container: %v", model.ErrCertificateStorage, err)
	}
	env := &model.CertEnvelope{}
	if checkOnly {
		return env, nil
	}
	for _, ref := range container.SecretRefs {
		payload, err := secrets.GetPayload(s.client, uuidFromRef(ref.SecretRef), nil).Extract()
		if err != nil {
			return nil, fmt.Errorf("%w: get %s payload: %v", model.ErrCertificateStorage, ref.Name, err)
		}
		switch ref.Name {
		case "certificate":
			env.Certificate = string(payload)
		case "private_key":
			env.PrivateKey = string(payload)
		case "intermediates":
			env.Intermediates = string(payload)
		case "private_key_passphrase":
			env.PrivateKeyPassphrase = string(payload)
		}
	}
	return env, nil
}

func (s *barbicanStore) Delete(ctx context.Context, certRef string) error {
	container, err := containers.Get(s.client, uuidFromRef(certRef)).Extract()
	if err != nil {
		if isGone(err) {
			return fmt.Errorf("%w: cert ref %s", model.ErrNotFound, certRef)
		}
		return fmt.Errorf("%w: get container: %v", model.ErrCertificateStorage, err)
	}
	for _, ref := range container.SecretRefs {
		if err := secrets.Delete(s.client, uuidFromRef(ref.SecretRef)).ExtractErr(); err != nil && !isGone(err) {
			return fmt.Errorf("%w: delete %s: %v", model.ErrCertificateStorage, ref.Name, err)
		}
	}
	if err := containers.Delete(s.client, uuidFromRef(certRef)).ExtractErr(); err != nil && !isGone(err) {
		return fmt.Errorf("%w: delete container: %v", model.ErrCertificateStorage, err)
	}
	return nil
}

// uuidFromRef extracts the resource id from a barbican href.
func uuidFromRef(ref string) string {
	ref = strings.TrimRight(ref, "/")
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

func isGone(err error) bool {
	if _, ok := err.(gophercloud.ErrDefault404); ok {
		return true
	}
	_, ok := err.(gophercloud.ErrResourceNotFound)
	return ok
}

var _ model.CertStore = (*barbicanStore)(nil)
