package server

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/protocol-extractor/constants"
	"github.com/joseph-ayodele/protocol-extractor/internal/async"
	"github.com/joseph-ayodele/protocol-extractor/internal/common"
	"github.com/joseph-ayodele/protocol-extractor/internal/export"
	"github.com/joseph-ayodele/protocol-extractor/internal/ingest"
	"github.com/joseph-ayodele/protocol-extractor/internal/pipeline"
	"github.com/joseph-ayodele/protocol-extractor/internal/repository"
	"github.com/joseph-ayodele/protocol-extractor/internal/utils"
)

// ProtocolService implements ProtocolExtractorServer. runs, exporter and
// queue are optional; the methods that need a missing one fail with
// FailedPrecondition.
type ProtocolService struct {
	proc     async.DocumentProcessor
	runs     repository.ProtocolRunRepository
	exporter *export.Service
	queue    async.Queue
	logger   *slog.Logger
}

type ServiceOption func(*ProtocolService)

func WithRuns(runs repository.ProtocolRunRepository) ServiceOption {
	return func(s *ProtocolService) { s.runs = runs }
}

func WithExporter(e *export.Service) ServiceOption {
	return func(s *ProtocolService) { s.exporter = e }
}

// WithQueue enables {"async": true} requests.
func WithQueue(q async.Queue) ServiceOption {
	return func(s *ProtocolService) { s.queue = q }
}

func NewProtocolService(proc async.DocumentProcessor, logger *slog.Logger, opts ...ServiceOption) *ProtocolService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ProtocolService{proc: proc, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ProcessDocument accepts {"path", "output"?, "async"?}. A synchronous call
// always answers with the XML, which is the error document when the run
// failed; only a failed write of "output" is a gRPC error.
func (s *ProtocolService) ProcessDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	path := strings.TrimSpace(utils.StructString(req, "path"))
	output := strings.TrimSpace(utils.StructString(req, "output"))
	if path == "" {
		return nil, common.InvalidArgumentError("path is required")
	}
	if !ingest.AllowedExt(filepath.Ext(path), nil) {
		return nil, common.InvalidArgumentErrorf("unsupported document type %q", path)
	}

	if utils.StructBool(req, "async") {
		if s.queue == nil {
			return nil, common.FailedPreconditionError("async processing is not enabled")
		}
		if output == "" {
			output = pipeline.DefaultOutputPath(path)
		}
		job := async.Job{Source: path, Output: output, SubmittedAt: time.Now(), TraceID: uuid.NewString()}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			if errors.Is(err, async.ErrQueueClosed) {
				return nil, common.FailedPreconditionError(err.Error())
			}
			return nil, common.InternalErrorf("enqueue: %v", err)
		}
		s.logger.Info("grpc.process.queued", "path", path, "output", output, "trace_id", job.TraceID)
		return structpb.NewStruct(map[string]any{"queued": true, "trace_id": job.TraceID, "output": output})
	}

	s.logger.Info("grpc.process.start", "path", path)
	res := s.proc.Process(ctx, path)
	if output != "" {
		if err := pipeline.WriteXML(output, res.XML); err != nil {
			s.logger.Error("grpc.process.write_failed", "output", output, "err", err)
			return nil, common.InternalErrorf("write output: %v", err)
		}
	}

	out, err := utils.ToPBResult(res)
	if err != nil {
		return nil, common.InternalErrorf("encode result: %v", err)
	}
	if output != "" {
		out.Fields["output"] = structpb.NewStringValue(output)
	}
	return out, nil
}

// ListRuns accepts {"status"?, "limit"?, "include_xml"?} and answers
// {"runs": [...]}, newest first.
func (s *ProtocolService) ListRuns(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.runs == nil {
		return nil, common.FailedPreconditionError("run journal is not configured")
	}
	filter, err := runsFilter(req)
	if err != nil {
		return nil, err
	}

	runs, err := s.runs.List(ctx, filter)
	if err != nil {
		s.logger.Error("grpc.list_runs.failed", "err", err)
		return nil, common.InternalError("list runs failed")
	}

	withXML := utils.StructBool(req, "include_xml")
	items := make([]any, 0, len(runs))
	for _, r := range runs {
		pb, err := utils.ToPBRun(r, withXML)
		if err != nil {
			return nil, common.InternalErrorf("encode run: %v", err)
		}
		items = append(items, pb.AsMap())
	}
	return structpb.NewStruct(map[string]any{"runs": items})
}

// GetRun accepts {"run_id", "include_xml"?} and answers with the journal row.
func (s *ProtocolService) GetRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.runs == nil {
		return nil, common.FailedPreconditionError("run journal is not configured")
	}
	raw := strings.TrimSpace(utils.StructString(req, "run_id"))
	v := common.NewValidator().Field("run_id", raw, common.Required, common.UUID)
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}

	run, err := s.runs.GetByID(ctx, uuid.MustParse(raw))
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.NotFoundError("protocol run " + raw + " not found")
	}
	if err != nil {
		s.logger.Error("grpc.get_run.failed", "run_id", raw, "err", err)
		return nil, common.InternalError("get run failed")
	}

	pb, err := utils.ToPBRun(run, utils.StructBool(req, "include_xml"))
	if err != nil {
		return nil, common.InternalErrorf("encode run: %v", err)
	}
	return pb, nil
}

// ExportRuns accepts {"status"?, "limit"?, "from_date"?, "to_date"?} with
// YYYY-MM-DD dates. Only from_date means from..today.
func (s *ProtocolService) ExportRuns(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	if s.exporter == nil {
		return nil, common.FailedPreconditionError("run journal is not configured")
	}
	filter, err := runsFilter(req)
	if err != nil {
		return nil, err
	}

	var fromPtr, toPtr *time.Time
	if fd := strings.TrimSpace(utils.StructString(req, "from_date")); fd != "" {
		t, err := utils.ParseYMD(fd)
		if err != nil {
			return nil, common.InvalidArgumentError("from_date must be YYYY-MM-DD")
		}
		fromPtr = &t
	}
	if td := strings.TrimSpace(utils.StructString(req, "to_date")); td != "" {
		t, err := utils.ParseYMD(td)
		if err != nil {
			return nil, common.InvalidArgumentError("to_date must be YYYY-MM-DD")
		}
		toPtr = &t
	}
	if fromPtr != nil && toPtr == nil {
		today := time.Now().UTC()
		to := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
		toPtr = &to
	}

	xlsx, err := s.exporter.ExportRunsXLSX(ctx, filter, fromPtr, toPtr)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "err", err)
		return nil, common.InternalError("export failed")
	}
	return wrapperspb.Bytes(xlsx), nil
}

func runsFilter(req *structpb.Struct) (repository.ListRunsFilter, error) {
	status := strings.ToUpper(strings.TrimSpace(utils.StructString(req, "status")))
	limit := utils.StructInt(req, "limit", 0)

	v := common.NewValidator()
	if status != "" {
		v.Field("status", status, common.OneOf(
			string(constants.RunStatusRunning),
			string(constants.RunStatusExtracted),
			string(constants.RunStatusFailed),
		))
	}
	if limit < 0 {
		v.Field("limit", limit, func(field string, value interface{}) *common.ValidationError {
			return &common.ValidationError{Field: field, Value: value, Message: "must not be negative"}
		})
	}
	if err := common.ValidateAndReturnError(v); err != nil {
		return repository.ListRunsFilter{}, err
	}
	return repository.ListRunsFilter{Status: status, Limit: limit}, nil
}
