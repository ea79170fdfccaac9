package simd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GoSim-25-26J-441/nlo-screen/internal/metrics"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/logger"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/models"
)

var _ ScreeningServiceServer = (*ScreeningGRPCServer)(nil)

// ScreeningGRPCServer implements ScreeningServiceServer on top of a SearchExecutor
type ScreeningGRPCServer struct {
	store    *RunStore
	Executor *SearchExecutor
}

func NewScreeningGRPCServer(executor *SearchExecutor) *ScreeningGRPCServer {
	return &ScreeningGRPCServer{
		store:    executor.Store(),
		Executor: executor,
	}
}

type runIDRequest struct {
	RunID          string `json:"run_id"`
	IncludeRecords bool   `json:"include_records,omitempty"`
	IncludeMetrics bool   `json:"include_metrics,omitempty"`
	IntervalMs     int    `json:"interval_ms,omitempty"`
}

type listRequest struct {
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
	Status string `json:"status,omitempty"`
}

func (s *ScreeningGRPCServer) Simulate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req simulateRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.Config == nil {
		return nil, status.Error(codes.InvalidArgument, "config is required")
	}
	kpis, score, err := s.Executor.Simulate(*req.Config)
	if err != nil {
		return nil, grpcError(err)
	}
	if !req.IncludeCurve {
		kpis.Curve = nil
	}
	return toStruct(map[string]any{
		"config":     req.Config,
		"kpis":       kpis,
		"score":      score,
		"degenerate": kpis.Degenerate(),
	})
}

func (s *ScreeningGRPCServer) Search(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SearchRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	rec, err := s.Executor.Submit(&req)
	if err != nil {
		if errors.Is(err, ErrRunExists) {
			return nil, status.Error(codes.AlreadyExists, err.Error())
		}
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	logger.Info("search created (gRPC)", "run_id", rec.Run.ID, "strategy", rec.Run.Strategy, "candidates", rec.Run.Total)

	if !req.Wait {
		return toStruct(map[string]any{"run": rec.Run})
	}
	done, err := s.Executor.Wait(ctx, rec.Run.ID)
	if err != nil {
		return nil, status.FromContextError(err).Err()
	}
	return toStruct(searchView(done))
}

func (s *ScreeningGRPCServer) GetSearch(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req runIDRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.RunID == "" {
		return nil, status.Error(codes.InvalidArgument, ErrRunIDMissing.Error())
	}
	rec, ok := s.store.Get(req.RunID)
	if !ok {
		return nil, status.Error(codes.NotFound, "search not found")
	}
	view := searchView(rec)
	if req.IncludeRecords && rec.Result != nil {
		view["records"] = rec.Result.Records
	}
	if req.IncludeMetrics && rec.Metrics != nil {
		view["metrics"] = metrics.BuildReport(rec.Metrics)
	}
	return toStruct(view)
}

func (s *ScreeningGRPCServer) ListSearches(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req listRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	runs := s.store.List(min(limit, 1000), max(req.Offset, 0), ParseRunStatus(req.Status))
	out := make([]SearchRun, 0, len(runs))
	for _, rec := range runs {
		out = append(out, rec.Run)
	}
	return toStruct(map[string]any{"searches": out})
}

func (s *ScreeningGRPCServer) StopSearch(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req runIDRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	updated, err := s.Executor.Stop(req.RunID)
	if err != nil {
		return nil, grpcError(err)
	}
	logger.Info("search cancelled (gRPC)", "run_id", req.RunID)
	return toStruct(map[string]any{"run": updated.Run})
}

// StreamSearchEvents sends a progress event whenever the run advances and a
// final complete event once it is terminal
func (s *ScreeningGRPCServer) StreamSearchEvents(in *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	var req runIDRequest
	if err := fromStruct(in, &req); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if req.RunID == "" {
		return status.Error(codes.InvalidArgument, ErrRunIDMissing.Error())
	}
	rec, ok := s.store.Get(req.RunID)
	if !ok {
		return status.Error(codes.NotFound, "search not found")
	}

	send := func(event string, data map[string]any) error {
		data["event"] = event
		data["at_unix_ms"] = time.Now().UTC().UnixMilli()
		msg, err := toStruct(data)
		if err != nil {
			return err
		}
		return stream.Send(msg)
	}

	if err := send("progress", progressEvent(rec)); err != nil {
		return err
	}
	if rec.Run.Status.Terminal() {
		return send("complete", searchView(rec))
	}

	interval := 500 * time.Millisecond
	if req.IntervalMs > 0 {
		interval = time.Duration(req.IntervalMs) * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := rec.Run

	for {
		select {
		case <-stream.Context().Done():
			return stream.Context().Err()
		case <-ticker.C:
			rec, ok := s.store.Get(req.RunID)
			if !ok {
				return status.Error(codes.NotFound, "search not found")
			}
			if rec.Run.Done != last.Done || rec.Run.Status != last.Status {
				if err := send("progress", progressEvent(rec)); err != nil {
					return err
				}
				last = rec.Run
			}
			if rec.Run.Status.Terminal() {
				return send("complete", searchView(rec))
			}
		}
	}
}

// grpcError maps domain and run errors to status codes
func grpcError(err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidConfiguration), errors.Is(err, ErrRunIDMissing):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, models.ErrMaterialNotFound), errors.Is(err, ErrRunNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrRunTerminal):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrRunExists):
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// toStruct converts a JSON-encodable value into a Struct message
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// fromStruct decodes a Struct message into v, rejecting unknown fields
func fromStruct(in *structpb.Struct, v any) error {
	if in == nil {
		in = new(structpb.Struct)
	}
	raw, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
