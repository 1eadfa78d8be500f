package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/stackmint/stackmint/domain/model"
	"github.com/stackmint/stackmint/internal/logging"
	"github.com/stackmint/stackmint/internal/metrics"
	"github.com/stackmint/stackmint/rpc"
)

// newCmdServe returns the command running the control plane: the conductor
// loops plus the listener carrying /rpc and /metrics.
func newCmdServe() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the control plane",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(cmd)
			if err != nil {
				return err
			}
			log := logging.FromContext(ctx)
			metrics.Register()

			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			mux.Handle("/rpc", rpcEndpoint(ctx, a.dispatcher))

			srv := &http.Server{
				Addr:    fmt.Sprintf("%s:%d", a.cfg.API.Host, a.cfg.API.Port),
				Handler: mux,
			}

			errCh := make(chan error, 2)
			go func() { errCh <- a.conductor.Run(ctx) }()
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()
			log.Info(ctx, "control plane serving", "addr", srv.Addr)

			select {
			case <-ctx.Done():
			case err = <-errCh:
			}

			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if serr := srv.Shutdown(shutCtx); serr != nil && err == nil {
				err = serr
			}
			return err
		},
	}
}

// callerContext is the wire form of the caller identity on /rpc. The
// transport tier in front of the listener is expected to have authenticated
// it already.
type callerContext struct {
	UserID     string   `json:"user_id,omitempty"`
	UserName   string   `json:"user_name,omitempty"`
	ProjectID  string   `json:"project_id,omitempty"`
	DomainID   string   `json:"domain_id,omitempty"`
	Roles      []string `json:"roles,omitempty"`
	IsAdmin    bool     `json:"is_admin,omitempty"`
	AllTenants bool     `json:"all_tenants,omitempty"`
	RequestID  string   `json:"request_id,omitempty"`
}

type rpcCall struct {
	Context callerContext `json:"context"`
	Request rpc.Request   `json:"request"`
}

// rpcEndpoint decodes one call per POST body and answers with the dispatcher
// response. baseCtx carries the process logger into handler contexts.
func rpcEndpoint(baseCtx context.Context, d *rpc.Dispatcher) http.Handler {
	log := logging.FromContext(baseCtx)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var call rpcCall
		if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
			http.Error(w, "malformed call", http.StatusBadRequest)
			return
		}
		rctx := &model.RequestContext{
			UserID:     call.Context.UserID,
			UserName:   call.Context.UserName,
			ProjectID:  call.Context.ProjectID,
			DomainID:   call.Context.DomainID,
			Roles:      call.Context.Roles,
			IsAdmin:    call.Context.IsAdmin,
			AllTenants: call.Context.AllTenants,
			RequestID:  call.Context.RequestID,
		}
		ctx := logging.WithLogger(r.Context(), log)
		resp, err := d.Dispatch(ctx, rctx, &call.Request)
		if err != nil {
			log.Error(ctx, "dispatch failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Warn(ctx, "response write failed", "error", err)
		}
	})
}
