// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package otaprpc

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	colarspb "github.com/f5/otel-arrow-adapter/api/collector/arrow/v1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/open-telemetry/otap-dataflow/pkg/control"
	"github.com/open-telemetry/otap-dataflow/pkg/node"
	"github.com/open-telemetry/otap-dataflow/pkg/otel/arrow_record"
	"github.com/open-telemetry/otap-dataflow/pkg/pdata"
)

// Receiver implements node.Implementation and the OTAP-Arrow
// ArrowStreamServiceServer. Each ArrowStream call runs on grpc-go's own
// goroutine and reaches into the node only through the EffectHandler
// captured once Start begins and a shared pendingTable, the same pattern
// pkg/otlpreceiver uses for its wait_for_result mode.
type Receiver struct {
	colarspb.UnimplementedArrowStreamServiceServer

	cfg Config

	mu     sync.RWMutex
	eh     *node.EffectHandler
	logger *zap.Logger

	pending *pendingTable
	server  *grpc.Server
}

// NewReceiver creates an OTAP-Arrow receiver. logger may be nil.
func NewReceiver(cfg Config, logger *zap.Logger) *Receiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Receiver{cfg: cfg, logger: logger, pending: newPendingTable()}
}

func (r *Receiver) Start(ctx context.Context, mc *control.MessageChannel, eh *node.EffectHandler) (node.TerminalState, error) {
	if err := registerCompression(r.cfg.Compression); err != nil {
		return node.Fatal(err.Error()), err
	}

	r.mu.Lock()
	r.eh = eh
	r.mu.Unlock()

	lis, err := net.Listen("tcp", r.cfg.ListenAddr)
	if err != nil {
		return node.Fatal(err.Error()), err
	}
	r.server = grpc.NewServer()
	colarspb.RegisterArrowStreamServiceServer(r.server, r)

	serveErr := make(chan error, 1)
	go func() { serveErr <- r.server.Serve(lis) }()

	for {
		env, err := mc.Recv(ctx)
		if err != nil {
			r.server.GracefulStop()
			return node.Normal(), nil
		}
		if !env.IsControl {
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
	if id, ok := ack.CallData.Uint(callDataSlotBatch); ok {
		r.pending.resolve(id, outcome{ok: true})
	}
}

func (r *Receiver) handleNack(nack control.NackMsg) {
	if id, ok := nack.CallData.Uint(callDataSlotBatch); ok {
		r.pending.resolve(id, outcome{reason: nack.Reason})
	}
}

// ArrowStream implements colarspb.ArrowStreamServiceServer. It loops
// receiving one BatchArrowRecords per iteration, decodes it with a
// per-stream Consumer (the column dictionaries it maintains are only valid
// within one stream), forwards the decoded signal downstream, and replies
// with the batch's outcome once known.
func (r *Receiver) ArrowStream(stream colarspb.ArrowStreamService_ArrowStreamServer) error {
	ctx := stream.Context()
	consumer := arrow_record.NewConsumer()
	defer func() {
		if err := consumer.Close(); err != nil {
			r.logger.Error("arrow stream close", zap.Error(err))
		}
	}()

	for {
		batch, err := stream.Recv()
		if err != nil {
			r.logStreamError(err)
			return err
		}

		status := &colarspb.StatusMessage{BatchId: batch.GetBatchId()}
		if err := r.processBatch(ctx, consumer, batch); err != nil {
			status.StatusCode = colarspb.StatusCode_ERROR
			status.ErrorMessage = err.Error()
			status.ErrorCode = errorCodeFor(err)
			r.logger.Debug("arrow batch error", zap.Error(err))
		} else {
			status.StatusCode = colarspb.StatusCode_OK
		}

		resp := &colarspb.BatchStatus{Statuses: []*colarspb.StatusMessage{status}}
		if err := stream.Send(resp); err != nil {
			r.logStreamError(err)
			return err
		}
	}
}

// processBatch decodes records by payload type and dispatches each decoded
// signal downstream, optionally waiting for its ACK/NACK outcome.
func (r *Receiver) processBatch(ctx context.Context, consumer arrow_record.ConsumerAPI, records *colarspb.BatchArrowRecords) error {
	payloads := records.GetOtlpArrowPayloads()
	if len(payloads) == 0 {
		return nil
	}
	switch payloads[0].Type {
	case colarspb.OtlpArrowPayloadType_METRICS:
		ms, err := consumer.MetricsFrom(records)
		if err != nil {
			return err
		}
		for _, m := range ms {
			if err := r.dispatch(ctx, pdata.DecodedPayload(m)); err != nil {
				return err
			}
		}
	case colarspb.OtlpArrowPayloadType_LOGS:
		ls, err := consumer.LogsFrom(records)
		if err != nil {
			return err
		}
		for _, l := range ls {
			if err := r.dispatch(ctx, pdata.DecodedPayload(l)); err != nil {
				return err
			}
		}
	case colarspb.OtlpArrowPayloadType_SPANS:
		ts, err := consumer.TracesFrom(records)
		if err != nil {
			return err
		}
		for _, t := range ts {
			if err := r.dispatch(ctx, pdata.DecodedPayload(t)); err != nil {
				return err
			}
		}
	default:
		return errUnrecognizedPayload
	}
	return nil
}

var errUnrecognizedPayload = errors.New("otaprpc: unrecognized OTLP-Arrow payload type")

// dispatch wraps payload into a Pdata envelope, sends it downstream, and
// (when WaitForAck is set) blocks until the engine resolves the outcome.
func (r *Receiver) dispatch(ctx context.Context, payload pdata.Payload) error {
	r.mu.RLock()
	eh := r.eh
	r.mu.RUnlock()
	if eh == nil {
		return status.Error(codes.Unavailable, "otaprpc: not started")
	}

	msg := pdata.NewDefaultPdata(payload)

	if !r.cfg.WaitForAck {
		return eh.SendMessage(ctx, msg)
	}

	id, waitCh := r.pending.register()
	var cd pdata.CallData
	cd.SetUint(callDataSlotBatch, id)
	eh.SubscribeTo(pdata.InterestAck|pdata.InterestNack, cd, &msg)

	if err := eh.SendMessage(ctx, msg); err != nil {
		r.pending.forget(id)
		return err
	}

	select {
	case o := <-waitCh:
		if o.ok {
			return nil
		}
		return errors.New(o.reason)
	case <-time.After(r.cfg.AckTimeout):
		r.pending.forget(id)
		return errors.New("otaprpc: ack timed out")
	case <-ctx.Done():
		r.pending.forget(id)
		return ctx.Err()
	}
}

func errorCodeFor(err error) colarspb.ErrorCode {
	if errors.Is(err, errUnrecognizedPayload) {
		return colarspb.ErrorCode_INVALID_ARGUMENT
	}
	return colarspb.ErrorCode_UNAVAILABLE
}

func (r *Receiver) logStreamError(err error) {
	if st, ok := status.FromError(err); ok {
		if st.Code() == codes.Canceled {
			r.logger.Debug("arrow stream canceled")
			return
		}
		r.logger.Error("arrow stream error", zap.Uint32("code", uint32(st.Code())), zap.String("message", st.Message()))
		return
	}
	switch {
	case errors.Is(err, io.EOF):
		r.logger.Debug("arrow stream end")
	case errors.Is(err, context.Canceled):
		r.logger.Debug("arrow stream canceled")
	default:
		r.logger.Error("arrow stream error", zap.Error(err))
	}
}
