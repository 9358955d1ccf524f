// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package otlpreceiver

import (
	"context"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/collector/pdata/plog/plogotlp"
	"go.opentelemetry.io/collector/pdata/pmetric/pmetricotlp"
	"go.opentelemetry.io/collector/pdata/ptrace/ptraceotlp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/open-telemetry/otap-dataflow/pkg/control"
	"github.com/open-telemetry/otap-dataflow/pkg/node"
	"github.com/open-telemetry/otap-dataflow/pkg/pdata"
)

// Receiver implements node.Implementation and, concurrently, the three
// OTLP gRPC unary services (logs/metrics/traces). The gRPC handlers run on
// grpc-go's own goroutines and reach into the node only through the
// EffectHandler captured once Start begins and the shared pendingTable.
type Receiver struct {
	cfg Config

	mu     sync.RWMutex
	eh     *node.EffectHandler
	logger *zap.Logger

	pending *pendingTable
	server  *grpc.Server
}

// NewReceiver creates an OTLP receiver. logger may be nil.
func NewReceiver(cfg Config, logger *zap.Logger) *Receiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Receiver{cfg: cfg, logger: logger, pending: newPendingTable()}
}

func (r *Receiver) Start(ctx context.Context, mc *control.MessageChannel, eh *node.EffectHandler) (node.TerminalState, error) {
	r.mu.Lock()
	r.eh = eh
	r.mu.Unlock()

	lis, err := net.Listen("tcp", r.cfg.ListenAddr)
	if err != nil {
		return node.Fatal(err.Error()), err
	}
	r.server = grpc.NewServer()
	plogotlp.RegisterGRPCServer(r.server, logsServer{r})
	pmetricotlp.RegisterGRPCServer(r.server, metricsServer{r})
	ptraceotlp.RegisterGRPCServer(r.server, tracesServer{r})

	serveErr := make(chan error, 1)
	go func() { serveErr <- r.server.Serve(lis) }()

	for {
		env, err := mc.Recv(ctx)
		if err != nil {
			r.server.GracefulStop()
			return node.Normal(), nil
		}
		if !env.IsControl {
			// Receivers generate data; nothing else feeds their data inbox.
			continue
		}
		switch env.Control.Kind {
		case control.KindAck:
			r.handleAck(env.Control.Ack)
		case control.KindNack:
			r.handleNack(env.Control.Nack)
		case control.KindCollectTelemetry:
			if env.Control.TelemetryReporter != nil && eh.Metrics() != nil {
				env.Control.TelemetryReporter.Report(string(eh.SelfID()), eh.Metrics().Snapshot())
			}
		case control.KindShutdown:
			r.server.GracefulStop()
			select {
			case <-serveErr:
			case <-time.After(time.Second):
			}
			return node.Shutdown(string(env.Control.ShutdownReason)), nil
		}
	}
}

func (r *Receiver) handleAck(ack control.AckMsg) {
	if id, ok := ack.CallData.Uint(callDataSlotRequestID); ok {
		r.pending.resolve(id, outcome{ok: true})
	}
}

func (r *Receiver) handleNack(nack control.NackMsg) {
	if id, ok := nack.CallData.Uint(callDataSlotRequestID); ok {
		r.pending.resolve(id, outcome{reason: nack.Reason})
	}
}

// dispatch wraps payload into a Pdata envelope, optionally subscribes for
// ACK/NACK, sends it downstream, and (when wait_for_result is enabled)
// blocks until the outcome arrives or ctx/timeout expires.
func (r *Receiver) dispatch(ctx context.Context, payload pdata.Payload) error {
	r.mu.RLock()
	eh := r.eh
	r.mu.RUnlock()
	if eh == nil {
		return status.Error(codes.Unavailable, "otlpreceiver: not started")
	}

	msg := pdata.NewDefaultPdata(payload)

	if !r.cfg.WaitForResult {
		if err := eh.SendMessage(ctx, msg); err != nil {
			return status.Error(codes.ResourceExhausted, err.Error())
		}
		return nil
	}

	id, waitCh := r.pending.register()
	var cd pdata.CallData
	cd.SetUint(callDataSlotRequestID, id)
	eh.SubscribeTo(pdata.InterestAck|pdata.InterestNack, cd, &msg)

	if err := eh.SendMessage(ctx, msg); err != nil {
		r.pending.forget(id)
		return status.Error(codes.ResourceExhausted, err.Error())
	}

	timeout := r.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	select {
	case o := <-waitCh:
		return statusFor(o)
	case <-time.After(timeout):
		r.pending.forget(id)
		return status.Error(codes.DeadlineExceeded, "otlpreceiver: wait_for_result timed out")
	case <-ctx.Done():
		r.pending.forget(id)
		return status.FromContextError(ctx.Err()).Err()
	}
}

type logsServer struct{ r *Receiver }

func (s logsServer) Export(ctx context.Context, req plogotlp.ExportRequest) (plogotlp.ExportResponse, error) {
	payload := pdata.DecodedPayload(req.Logs())
	if err := s.r.dispatch(ctx, payload); err != nil {
		return plogotlp.NewExportResponse(), err
	}
	return plogotlp.NewExportResponse(), nil
}

type metricsServer struct{ r *Receiver }

func (s metricsServer) Export(ctx context.Context, req pmetricotlp.ExportRequest) (pmetricotlp.ExportResponse, error) {
	payload := pdata.DecodedPayload(req.Metrics())
	if err := s.r.dispatch(ctx, payload); err != nil {
		return pmetricotlp.NewExportResponse(), err
	}
	return pmetricotlp.NewExportResponse(), nil
}

type tracesServer struct{ r *Receiver }

func (s tracesServer) Export(ctx context.Context, req ptraceotlp.ExportRequest) (ptraceotlp.ExportResponse, error) {
	payload := pdata.DecodedPayload(req.Traces())
	if err := s.r.dispatch(ctx, payload); err != nil {
		return ptraceotlp.NewExportResponse(), err
	}
	return ptraceotlp.NewExportResponse(), nil
}
