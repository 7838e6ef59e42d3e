package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kazanim-analiz/internal/analysis"
	"kazanim-analiz/internal/checkpoint"
	"kazanim-analiz/internal/clients"
)

// --- fakes ---

type fakeVision struct {
	res   clients.VisionResult
	err   error
	block bool // wait for ctx cancellation instead of answering
}

func (f *fakeVision) Analyze(ctx context.Context, _ []byte, _ string) (clients.VisionResult, error) {
	if f.block {
		<-ctx.Done()
		return clients.VisionResult{}, ctx.Err()
	}
	return f.res, f.err
}

type objCall struct {
	grade   int
	subject string
}

type fakeObjectives struct {
	mu         sync.Mutex
	calls      []objCall
	perAttempt [][]analysis.Objective // result for call i; missing entries mean empty
	err        error
}

func (f *fakeObjectives) Search(_ context.Context, _ string, grade int, subject string, _ int) ([]analysis.Objective, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.calls)
	f.calls = append(f.calls, objCall{grade: grade, subject: subject})
	if f.err != nil {
		return nil, f.err
	}
	if i < len(f.perAttempt) {
		return f.perAttempt[i], nil
	}
	return nil, nil
}

func (f *fakeObjectives) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSections struct {
	mu    sync.Mutex
	calls int
	secs  []analysis.Section
	err   error
}

func (f *fakeSections) SearchByObjectives(_ context.Context, _ []string, _ string) ([]analysis.Section, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.secs, f.err
}

// fakeReranker reverses the objective order; omitted fields pass through.
type fakeReranker struct {
	err error
}

func (f *fakeReranker) Rerank(_ context.Context, _ string, objs []analysis.Objective, secs []analysis.Section) ([]analysis.Objective, []analysis.Section, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	ro := make([]analysis.Objective, 0, len(objs))
	for i := len(objs) - 1; i >= 0; i-- {
		ro = append(ro, objs[i])
	}
	return ro, secs, nil
}

type fakeGenerator struct {
	mu     sync.Mutex
	calls  int
	prompt string
	raw    string
	err    error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompt = prompt
	f.mu.Unlock()
	return f.raw, f.err
}

const goodDiagnosisJSON = `{
  "test_edilen_kazanimlar": [
    {"kazanim_kodu": "M.7.2.1", "aciklama": "Birinci dereceden denklemleri çözer.", "ilgi_skoru": 0.92, "dogrudan": true}
  ],
  "on_kosul_eksikleri": [],
  "aciklama": "Soru birinci dereceden denklem çözmeyi test ediyor.",
  "calisma_onerileri": ["Denklem alıştırmaları yapın."],
  "guven_skoru": 0.9
}`

func someObjectives() []analysis.Objective {
	return []analysis.Objective{
		{Code: "M.7.2.1", Description: "Birinci dereceden denklemleri çözer.", Score: 0.9},
		{Code: "M.7.2.2", Description: "Denklem kurar.", Score: 0.7},
	}
}

type fixture struct {
	vision     *fakeVision
	objectives *fakeObjectives
	sections   *fakeSections
	reranker   clients.Reranker // nil unless a test wires one
	generator  *fakeGenerator
	store      *checkpoint.Memory
}

func newFixture() *fixture {
	return &fixture{
		vision:     &fakeVision{},
		objectives: &fakeObjectives{perAttempt: [][]analysis.Objective{someObjectives()}},
		sections:   &fakeSections{secs: []analysis.Section{{Path: "7/cebir/denklemler", PageRange: "112-118", Score: 0.8}}},
		generator:  &fakeGenerator{raw: goodDiagnosisJSON},
		store:      checkpoint.NewMemory(),
	}
}

func (f *fixture) orchestrator(opts ...Option) *Orchestrator {
	return New(Collaborators{
		Vision:     f.vision,
		Objectives: f.objectives,
		Sections:   f.sections,
		Reranker:   f.reranker,
		Generator:  f.generator,
	}, f.store, opts...)
}

func textState(text string, grade int) analysis.State {
	return analysis.State{
		RequestID: "req-test",
		InputKind: analysis.InputText,
		RawText:   text,
		UserGrade: grade,
	}
}

// --- scenarios ---

func TestTextInputHappyPath(t *testing.T) {
	f := newFixture()
	orc := f.orchestrator()

	out, err := orc.Run(context.Background(), textState("2x+3=7 için x kaçtır?", 7))
	require.NoError(t, err)

	// extracted text is the input verbatim
	assert.Equal(t, "2x+3=7 için x kaçtır?", out.ExtractedText)

	// attempt 0 filtered by the declared grade, single attempt
	require.Equal(t, 1, f.objectives.callCount())
	assert.Equal(t, 7, f.objectives.calls[0].grade)

	assert.True(t, out.Done)
	assert.False(t, out.Failed())
	assert.Equal(t, 1, out.RetryCount)
	require.NotNil(t, out.Diagnosis)
	assert.False(t, out.Degraded)
	assert.Equal(t, "M.7.2.1", out.Diagnosis.TestedObjectives[0].Code)
}

func TestEstimatedGradeUsedOnlyWhenUserGradeAbsent(t *testing.T) {
	f := newFixture()
	f.vision.res = clients.VisionResult{
		Text:           "3/4 + 1/2 işleminin sonucu kaçtır?",
		EstimatedGrade: 5,
		QuestionType:   "islem",
	}
	orc := f.orchestrator()

	st := analysis.State{
		RequestID: "req-img",
		InputKind: analysis.InputImage,
		ImageData: []byte{0xFF, 0xD8, 0x01},
	}
	out, err := orc.Run(context.Background(), st)
	require.NoError(t, err)

	require.GreaterOrEqual(t, f.objectives.callCount(), 1)
	assert.Equal(t, 5, f.objectives.calls[0].grade, "attempt 0 must fall back to the estimated grade")
	assert.Equal(t, 5, out.EstimatedGrade)
	assert.True(t, out.Done)
}

func TestUserGradeBeatsEstimate(t *testing.T) {
	f := newFixture()
	f.vision.res = clients.VisionResult{Text: "soru", EstimatedGrade: 5}
	orc := f.orchestrator()

	st := analysis.State{
		RequestID: "req-both",
		InputKind: analysis.InputImage,
		ImageData: []byte{0xFF, 0xD8, 0x01},
		UserGrade: 7,
	}
	_, err := orc.Run(context.Background(), st)
	require.NoError(t, err)

	require.GreaterOrEqual(t, f.objectives.callCount(), 1)
	assert.Equal(t, 7, f.objectives.calls[0].grade, "declared grade must win over the estimate")
}

func TestRelaxationDropsFiltersProgressively(t *testing.T) {
	f := newFixture()
	// empty at attempts 0 and 1, candidates at attempt 2
	f.objectives.perAttempt = [][]analysis.Objective{nil, nil, someObjectives()}
	orc := f.orchestrator()

	st := textState("soru", 7)
	st.UserSubject = "matematik"
	out, err := orc.Run(context.Background(), st)
	require.NoError(t, err)

	require.Equal(t, 3, f.objectives.callCount())
	assert.Equal(t, objCall{grade: 7, subject: "matematik"}, f.objectives.calls[0])
	assert.Equal(t, objCall{grade: 7, subject: ""}, f.objectives.calls[1])
	assert.Equal(t, objCall{grade: 0, subject: ""}, f.objectives.calls[2])

	assert.Equal(t, 3, out.RetryCount)
	assert.False(t, out.Failed())
	assert.True(t, out.Done)
	assert.Equal(t, 1, f.sections.calls, "success at attempt 2 must continue into the section retriever")
}

func TestObjectiveExhaustionNeverMakesAFourthCall(t *testing.T) {
	f := newFixture()
	f.objectives.perAttempt = nil // always empty
	orc := f.orchestrator()

	out, err := orc.Run(context.Background(), textState("müfredat dışı bir soru", 7))
	require.NoError(t, err)

	assert.Equal(t, 3, f.objectives.callCount(), "retriever must be called exactly 3 times")
	assert.Equal(t, 0, f.sections.calls)
	assert.Equal(t, 0, f.generator.calls)

	assert.True(t, out.Done)
	assert.True(t, out.Failed())
	assert.Equal(t, analysis.ErrEmpty, out.ErrorKind)
	assert.Equal(t, StepErrorHandler, out.CurrentStep)
	require.NotNil(t, out.Diagnosis, "error handler must leave a user-safe fallback")
	assert.NotEmpty(t, out.Diagnosis.Recommendations)
}

func TestInputAnalyzerTimeoutDivertsToErrorHandler(t *testing.T) {
	f := newFixture()
	f.vision.block = true
	orc := f.orchestrator(WithBudget(StepInput, 50*time.Millisecond))

	st := analysis.State{
		RequestID: "req-slow",
		InputKind: analysis.InputImage,
		ImageData: []byte{0xFF, 0xD8, 0x01},
	}
	out, err := orc.Run(context.Background(), st)
	require.NoError(t, err)

	assert.True(t, out.Done)
	assert.Equal(t, "timeout in "+StepInput, out.Error)
	assert.Equal(t, analysis.ErrTimeout, out.ErrorKind)
	assert.Equal(t, StepErrorHandler, out.CurrentStep)
	// the retriever never ran: timeout diverted straight to the error handler
	assert.Equal(t, 0, f.objectives.callCount())
}

func TestObjectiveSearchFaultDivertsToErrorHandler(t *testing.T) {
	f := newFixture()
	f.objectives.err = errors.New("connection refused")
	orc := f.orchestrator()

	out, err := orc.Run(context.Background(), textState("soru", 7))
	require.NoError(t, err)

	assert.True(t, out.Done)
	assert.True(t, out.Failed())
	assert.Equal(t, analysis.ErrFault, out.ErrorKind)
	assert.Equal(t, 1, f.objectives.callCount(), "a hard fault is not retried by the relaxation policy")
}

func TestSectionSearchFailureDegradesToEmpty(t *testing.T) {
	f := newFixture()
	f.sections.err = errors.New("pg down")
	orc := f.orchestrator()

	out, err := orc.Run(context.Background(), textState("soru", 7))
	require.NoError(t, err)

	assert.True(t, out.Done)
	assert.False(t, out.Failed(), "section search failure must not fail the pipeline")
	require.NotNil(t, out.Sections)
	assert.Empty(t, out.Sections)
	assert.Equal(t, 1, f.generator.calls)
}

func TestMalformedGeneratorOutputDegrades(t *testing.T) {
	f := newFixture()
	f.generator.raw = "üzgünüm, JSON üretemedim ama soru denklemlerle ilgili"
	orc := f.orchestrator()

	out, err := orc.Run(context.Background(), textState("soru", 7))
	require.NoError(t, err)

	assert.True(t, out.Done)
	assert.False(t, out.Failed())
	assert.True(t, out.Degraded)
	require.NotNil(t, out.Diagnosis)
	assert.Equal(t, 0.5, out.Diagnosis.Confidence)
	assert.Empty(t, out.Diagnosis.TestedObjectives)
}

func TestRerankTruncatesToTopK(t *testing.T) {
	f := newFixture()
	many := make([]analysis.Objective, 8)
	for i := range many {
		many[i] = analysis.Objective{Code: string(rune('A' + i)), Score: float64(i)}
	}
	f.objectives.perAttempt = [][]analysis.Objective{many}
	orc := f.orchestrator()

	out, err := orc.Run(context.Background(), textState("soru", 7))
	require.NoError(t, err)

	require.Len(t, out.TopObjectives, TopObjectiveCount)
	// highest score first
	assert.Equal(t, "H", out.TopObjectives[0].Code)
	assert.LessOrEqual(t, len(out.TopSections), TopSectionCount)
}

func TestRerankerOrderingIsKept(t *testing.T) {
	f := newFixture()
	f.objectives.perAttempt = [][]analysis.Objective{{
		{Code: "A", Score: 0.9},
		{Code: "B", Score: 0.5},
		{Code: "C", Score: 0.1},
	}}
	f.reranker = &fakeReranker{}
	orc := f.orchestrator()

	out, err := orc.Run(context.Background(), textState("soru", 7))
	require.NoError(t, err)

	// the reranker reversed the list; its ordering must survive truncation
	require.Len(t, out.TopObjectives, 3)
	assert.Equal(t, "C", out.TopObjectives[0].Code)
	assert.Equal(t, "A", out.TopObjectives[2].Code)
}

func TestRerankFailureKeepsRetrievalOrder(t *testing.T) {
	f := newFixture()
	f.objectives.perAttempt = [][]analysis.Objective{{
		{Code: "A", Score: 0.9},
		{Code: "B", Score: 0.5},
	}}
	f.reranker = &fakeReranker{err: errors.New("model unavailable")}
	orc := f.orchestrator()

	out, err := orc.Run(context.Background(), textState("soru", 7))
	require.NoError(t, err)

	assert.False(t, out.Failed(), "rerank failure must not fail the pipeline")
	require.Len(t, out.TopObjectives, 2)
	assert.Equal(t, "A", out.TopObjectives[0].Code)
}

func TestResumeOfTerminalStateIsIdempotent(t *testing.T) {
	f := newFixture()
	orc := f.orchestrator()

	first, err := orc.Run(context.Background(), textState("soru", 7))
	require.NoError(t, err)
	require.True(t, first.Done)

	callsBefore := f.objectives.callCount()
	genBefore := f.generator.calls

	again, err := orc.Resume(context.Background(), first.RequestID)
	require.NoError(t, err)

	assert.Equal(t, first, again)
	assert.Equal(t, callsBefore, f.objectives.callCount(), "no node may re-execute")
	assert.Equal(t, genBefore, f.generator.calls)
}

func TestResumeContinuesFromLastCheckpoint(t *testing.T) {
	f := newFixture()
	orc := f.orchestrator()

	// checkpoint as if the process died right after the input analyzer
	mid := textState("soru", 7)
	mid.ExtractedText = "soru"
	mid.CurrentStep = StepInput
	require.NoError(t, f.store.Save(context.Background(), mid.RequestID, mid))

	out, err := orc.Resume(context.Background(), mid.RequestID)
	require.NoError(t, err)

	assert.True(t, out.Done)
	assert.False(t, out.Failed())
	assert.Equal(t, 1, f.objectives.callCount())
	require.NotNil(t, out.Diagnosis)
}

func TestResumeUnknownRequest(t *testing.T) {
	f := newFixture()
	orc := f.orchestrator()

	_, err := orc.Resume(context.Background(), "missing")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)
}

func TestCheckpointWrittenAfterEveryStep(t *testing.T) {
	f := newFixture()
	orc := f.orchestrator()

	out, err := orc.Run(context.Background(), textState("soru", 7))
	require.NoError(t, err)

	st, err := f.store.Load(context.Background(), out.RequestID)
	require.NoError(t, err)
	assert.Equal(t, out, st, "the final checkpoint must equal the terminal state")
}

func TestCancellationStopsPipeline(t *testing.T) {
	f := newFixture()
	f.vision.block = true
	orc := f.orchestrator()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	st := analysis.State{
		RequestID: "req-cancel",
		InputKind: analysis.InputImage,
		ImageData: []byte{0xFF, 0xD8, 0x01},
	}
	_, err := orc.Run(ctx, st)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// no checkpoint persisted after the caller walked away
	_, err = f.store.Load(context.Background(), "req-cancel")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)
}

func TestConcurrentRequestsAreIndependent(t *testing.T) {
	f := newFixture()
	// one successful attempt per request
	f.objectives.perAttempt = make([][]analysis.Objective, 8)
	for i := range f.objectives.perAttempt {
		f.objectives.perAttempt[i] = someObjectives()
	}
	orc := f.orchestrator()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			st := textState("soru", 7)
			st.RequestID = "req-" + string(rune('a'+i))
			out, err := orc.Run(context.Background(), st)
			assert.NoError(t, err)
			assert.True(t, out.Done)
			assert.False(t, out.Failed())
			assert.Equal(t, st.RequestID, out.RequestID)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, f.objectives.callCount())
}
