package genfix

import (
	"context"
	"fmt"
	"sync"
)

// fakeGateway replays scripted reply texts per call purpose. Scripting a
// purpose again replaces its queue; the last reply repeats once drained.
type fakeGateway struct {
	mu      sync.Mutex
	replies map[string][]string
	errs    map[string]error
	calls   []fakeCall
}

type fakeCall struct {
	purpose string
	prompt  string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		replies: make(map[string][]string),
		errs:    make(map[string]error),
	}
}

func (f *fakeGateway) on(purpose string, replies ...string) *fakeGateway {
	f.replies[purpose] = replies
	return f
}

func (f *fakeGateway) fail(purpose string, err error) *fakeGateway {
	f.errs[purpose] = err
	return f
}

func (f *fakeGateway) Complete(ctx context.Context, prompt string) (Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	purpose := PurposeFrom(ctx)
	f.calls = append(f.calls, fakeCall{purpose: purpose, prompt: prompt})

	if err, ok := f.errs[purpose]; ok {
		return nil, err
	}
	queue := f.replies[purpose]
	if len(queue) == 0 {
		return nil, &GatewayError{Provider: "fake", Wrapped: fmt.Errorf("no reply scripted for %s", purpose)}
	}
	reply := queue[0]
	if len(queue) > 1 {
		f.replies[purpose] = queue[1:]
	}
	return decodeObject(reply)
}

func (f *fakeGateway) purposes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.purpose
	}
	return out
}

func (f *fakeGateway) count(purpose string) int {
	n := 0
	for _, p := range f.purposes() {
		if p == purpose {
			n++
		}
	}
	return n
}

func (f *fakeGateway) lastPrompt(purpose string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].purpose == purpose {
			return f.calls[i].prompt
		}
	}
	return ""
}

const (
	generationReply = `{
		"text": "Which factor most directly explains the growth of edge cities in the United States?",
		"correct_answer": "Expansion of highway networks around metropolitan areas",
		"distractors": [
			"Decline of manufacturing in rural counties",
			"Rising birth rates in central cities",
			"Federal limits on suburban housing construction"
		],
		"explanation": "Highways made peripheral office and retail clusters accessible.",
		"ek_code": "PSO-6.C.1",
		"lo_code": "PSO-6.C"
	}`

	passReply = `{"score": 1, "rationale": "meets criteria", "feedback": ""}`
)

func failReply(rationale, feedback string) string {
	return fmt.Sprintf(`{"score": 0, "rationale": %q, "feedback": %q}`, rationale, feedback)
}

// allPassGateway scripts a generation reply and a passing result for every check
func allPassGateway() *fakeGateway {
	f := newFakeGateway().on("generate", generationReply)
	for _, kind := range Checks() {
		f.on("qc-"+string(kind), passReply)
	}
	return f
}

func sampleQuestion() *Question {
	return &Question{
		Text: "Which factor most directly explains the growth of edge cities in the United States?",
		Responses: []Response{
			{Text: "Expansion of highway networks around metropolitan areas", IsCorrect: true},
			{Text: "Decline of manufacturing in rural counties"},
			{Text: "Rising birth rates in central cities"},
			{Text: "Federal limits on suburban housing construction"},
		},
		Type:       MCQ,
		Difficulty: Analyze,
		EKCode:     "PSO-6.C.1",
		LOCode:     "PSO-6.C",
	}
}
