package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/protocol-extractor/constants"
	"github.com/joseph-ayodele/protocol-extractor/internal/async"
	"github.com/joseph-ayodele/protocol-extractor/internal/export"
	"github.com/joseph-ayodele/protocol-extractor/internal/pipeline"
	"github.com/joseph-ayodele/protocol-extractor/internal/repository"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeProcessor struct{}

func (fakeProcessor) Process(_ context.Context, source string) pipeline.Result {
	if filepath.Base(source) == "bad.pdf" {
		return pipeline.Result{Source: source, XML: "<stub/>", Err: errors.New("no text")}
	}
	return pipeline.Result{Source: source, XML: "<doc/>", Chunks: 1}
}

type fakeQueue struct {
	jobs []async.Job
	err  error
}

func (q *fakeQueue) Enqueue(_ context.Context, job async.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) Shutdown(context.Context) {}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func assertCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, status.Code(err))
}

// journalService returns a service over an in-memory journal holding one
// extracted and one failed run.
func journalService(t *testing.T) *ProtocolService {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{DSN: ":memory:"}, quiet())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	runs := repository.NewProtocolRunRepository(db, quiet())

	ok, err := runs.Start(ctx, "/in/good.pdf", "h1", constants.PDF)
	require.NoError(t, err)
	require.NoError(t, runs.FinishSuccess(ctx, ok.ID, repository.RunOutcome{ChunkCount: 2, XML: "<doc/>"}))
	bad, err := runs.Start(ctx, "/in/bad.pdf", "h2", constants.PDF)
	require.NoError(t, err)
	require.NoError(t, runs.FinishFailure(ctx, bad.ID, "no text", repository.RunOutcome{XML: "<stub/>"}))

	return NewProtocolService(fakeProcessor{}, quiet(),
		WithRuns(runs),
		WithExporter(export.NewService(runs, quiet())),
	)
}

func TestProcessDocumentSync(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "a.xml")
	svc := NewProtocolService(fakeProcessor{}, quiet())

	resp, err := svc.ProcessDocument(context.Background(), mustStruct(t, map[string]any{"path": "/in/a.pdf", "output": out}))
	require.NoError(t, err)
	assert.True(t, resp.GetFields()["ok"].GetBoolValue())
	assert.Equal(t, "<doc/>", resp.GetFields()["xml"].GetStringValue())
	assert.Equal(t, out, resp.GetFields()["output"].GetStringValue())

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "<doc/>", string(written))
}

func TestProcessDocumentFailureIsNotAnRPCError(t *testing.T) {
	svc := NewProtocolService(fakeProcessor{}, quiet())

	resp, err := svc.ProcessDocument(context.Background(), mustStruct(t, map[string]any{"path": "/in/bad.pdf"}))
	require.NoError(t, err)
	assert.False(t, resp.GetFields()["ok"].GetBoolValue())
	assert.Equal(t, "no text", resp.GetFields()["error"].GetStringValue())
	assert.Equal(t, "<stub/>", resp.GetFields()["xml"].GetStringValue())
}

func TestProcessDocumentValidation(t *testing.T) {
	svc := NewProtocolService(fakeProcessor{}, quiet())
	ctx := context.Background()

	_, err := svc.ProcessDocument(ctx, mustStruct(t, map[string]any{}))
	assertCode(t, err, codes.InvalidArgument)

	_, err = svc.ProcessDocument(ctx, mustStruct(t, map[string]any{"path": "/in/a.docx"}))
	assertCode(t, err, codes.InvalidArgument)

	_, err = svc.ProcessDocument(ctx, mustStruct(t, map[string]any{"path": "/in/a.pdf", "async": true}))
	assertCode(t, err, codes.FailedPrecondition)
}

func TestProcessDocumentAsync(t *testing.T) {
	q := &fakeQueue{}
	svc := NewProtocolService(fakeProcessor{}, quiet(), WithQueue(q))

	resp, err := svc.ProcessDocument(context.Background(), mustStruct(t, map[string]any{"path": "/in/a.pdf", "async": true}))
	require.NoError(t, err)
	assert.True(t, resp.GetFields()["queued"].GetBoolValue())
	require.Len(t, q.jobs, 1)
	assert.Equal(t, "/in/a_protocol.xml", q.jobs[0].Output)
	_, err = uuid.Parse(resp.GetFields()["trace_id"].GetStringValue())
	assert.NoError(t, err)

	q.err = async.ErrQueueClosed
	_, err = svc.ProcessDocument(context.Background(), mustStruct(t, map[string]any{"path": "/in/a.pdf", "async": true}))
	assertCode(t, err, codes.FailedPrecondition)
}

func TestListRuns(t *testing.T) {
	svc := journalService(t)
	ctx := context.Background()

	resp, err := svc.ListRuns(ctx, mustStruct(t, map[string]any{}))
	require.NoError(t, err)
	runs := resp.GetFields()["runs"].GetListValue().GetValues()
	require.Len(t, runs, 2)
	var sources []string
	for _, r := range runs {
		sources = append(sources, r.GetStructValue().GetFields()["source_path"].GetStringValue())
		assert.NotContains(t, r.GetStructValue().GetFields(), "xml")
	}
	assert.ElementsMatch(t, []string{"/in/good.pdf", "/in/bad.pdf"}, sources)

	resp, err = svc.ListRuns(ctx, mustStruct(t, map[string]any{"status": "extracted", "include_xml": true}))
	require.NoError(t, err)
	runs = resp.GetFields()["runs"].GetListValue().GetValues()
	require.Len(t, runs, 1)
	assert.Equal(t, "<doc/>", runs[0].GetStructValue().GetFields()["xml"].GetStringValue())

	_, err = svc.ListRuns(ctx, mustStruct(t, map[string]any{"status": "DONE"}))
	assertCode(t, err, codes.InvalidArgument)
	_, err = svc.ListRuns(ctx, mustStruct(t, map[string]any{"limit": -1}))
	assertCode(t, err, codes.InvalidArgument)

	_, err = NewProtocolService(fakeProcessor{}, quiet()).ListRuns(ctx, mustStruct(t, map[string]any{}))
	assertCode(t, err, codes.FailedPrecondition)
}

func TestGetRun(t *testing.T) {
	svc := journalService(t)
	ctx := context.Background()

	list, err := svc.ListRuns(ctx, mustStruct(t, map[string]any{"status": "EXTRACTED"}))
	require.NoError(t, err)
	id := list.GetFields()["runs"].GetListValue().GetValues()[0].GetStructValue().GetFields()["id"].GetStringValue()

	resp, err := svc.GetRun(ctx, mustStruct(t, map[string]any{"run_id": id, "include_xml": true}))
	require.NoError(t, err)
	assert.Equal(t, "/in/good.pdf", resp.GetFields()["source_path"].GetStringValue())
	assert.Equal(t, "<doc/>", resp.GetFields()["xml"].GetStringValue())

	_, err = svc.GetRun(ctx, mustStruct(t, map[string]any{"run_id": uuid.NewString()}))
	assertCode(t, err, codes.NotFound)
	_, err = svc.GetRun(ctx, mustStruct(t, map[string]any{"run_id": "run-1"}))
	assertCode(t, err, codes.InvalidArgument)
	_, err = svc.GetRun(ctx, mustStruct(t, map[string]any{}))
	assertCode(t, err, codes.InvalidArgument)

	_, err = NewProtocolService(fakeProcessor{}, quiet()).GetRun(ctx, mustStruct(t, map[string]any{"run_id": id}))
	assertCode(t, err, codes.FailedPrecondition)
}

func TestExportRuns(t *testing.T) {
	svc := journalService(t)
	ctx := context.Background()

	resp, err := svc.ExportRuns(ctx, mustStruct(t, map[string]any{"status": "FAILED"}))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(resp.GetValue()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.RunsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "/in/bad.pdf", rows[1][1])

	_, err = svc.ExportRuns(ctx, mustStruct(t, map[string]any{"from_date": "yesterday"}))
	assertCode(t, err, codes.InvalidArgument)
}

func TestServiceOverGRPC(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterProtocolExtractorServer(srv, journalService(t))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hresp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, hresp.GetStatus())

	out := new(structpb.Struct)
	require.NoError(t, conn.Invoke(ctx, FullMethod("ListRuns"), mustStruct(t, map[string]any{"limit": 1}), out))
	assert.Len(t, out.GetFields()["runs"].GetListValue().GetValues(), 1)

	err = conn.Invoke(ctx, FullMethod("GetRun"), mustStruct(t, map[string]any{"run_id": uuid.NewString()}), new(structpb.Struct))
	assertCode(t, err, codes.NotFound)

	xlsx := new(wrapperspb.BytesValue)
	require.NoError(t, conn.Invoke(ctx, FullMethod("ExportRuns"), mustStruct(t, map[string]any{}), xlsx))
	assert.NotEmpty(t, xlsx.GetValue())

	err = conn.Invoke(ctx, FullMethod("ProcessDocument"), mustStruct(t, map[string]any{}), new(structpb.Struct))
	assertCode(t, err, codes.InvalidArgument)
}
