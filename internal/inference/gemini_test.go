package inference

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeModels struct {
	mu      sync.Mutex
	calls   []fakeCall
	replies []fakeReply
}

type fakeCall struct {
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

type fakeReply struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeModels) enqueue(resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, fakeReply{resp: resp, err: err})
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prompt := ""
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		prompt = contents[0].Parts[0].Text
	}
	f.calls = append(f.calls, fakeCall{model: model, prompt: prompt, config: config})

	if len(f.replies) == 0 {
		return nil, errors.New("unexpected call")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply.resp, reply.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func newTestGemini(models *fakeModels, retries int) *Gemini {
	g := newGemini(models, GeminiOptions{
		Model:       "gemini-pro",
		Temperature: 0.2,
		MaxTokens:   512,
		MaxRetries:  retries,
		BackoffBase: time.Millisecond,
	}, zap.NewNop())
	g.policy.Sleep = noSleep(nil)
	return g
}

func TestGeminiRetriesOnTemporaryError(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"})
	models.enqueue(textResponse("retry ok"), nil)

	g := newTestGemini(models, 2)

	resp, err := g.Generate(context.Background(), Request{Kind: "strengths", Prompt: "message"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if resp.Text != "retry ok" || resp.Attempts != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}

	for _, call := range models.calls {
		if call.model != "gemini-pro" || call.prompt != "message" {
			t.Fatalf("unexpected call: %+v", call)
		}
		if call.config == nil || call.config.MaxOutputTokens != 512 || call.config.Temperature == nil {
			t.Fatalf("expected generation config to be forwarded: %+v", call.config)
		}
	}
}

func TestGeminiStopsAfterRetriesExhausted(t *testing.T) {
	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	models.enqueue(nil, tempErr)
	models.enqueue(nil, tempErr)

	g := newTestGemini(models, 2)

	_, err := g.Generate(context.Background(), Request{Prompt: "msg"})

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
}

type hangingModels struct {
	mu    sync.Mutex
	calls int
}

func (h *hangingModels) GenerateContent(ctx context.Context, _ string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()

	<-ctx.Done()
	return nil, ctx.Err()
}

func TestGeminiAttemptTimeout(t *testing.T) {
	models := &hangingModels{}
	g := newGemini(models, GeminiOptions{
		MaxRetries:  3,
		BackoffBase: time.Millisecond,
		Timeout:     20 * time.Millisecond,
	}, zap.NewNop())
	g.policy.Sleep = noSleep(nil)

	done := make(chan error, 1)
	go func() {
		_, err := g.Generate(context.Background(), Request{Prompt: "msg"})
		done <- err
	}()

	select {
	case err := <-done:
		var exhausted *ExhaustedError
		if !errors.As(err, &exhausted) {
			t.Fatalf("expected ExhaustedError, got %v", err)
		}
		if exhausted.Attempts != 3 {
			t.Fatalf("expected 3 attempts, got %d", exhausted.Attempts)
		}
		if !IsUnreachable(err) {
			t.Fatalf("expected timed out attempts to count as unreachable, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("generate did not honour the per-attempt timeout")
	}

	models.mu.Lock()
	defer models.mu.Unlock()
	if models.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", models.calls)
	}
}

func TestGeminiDoesNotRetryClientErrors(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT", Message: "bad key"})

	g := newTestGemini(models, 3)

	_, err := g.Generate(context.Background(), Request{Prompt: "msg"})

	var status *StatusError
	if !errors.As(err, &status) || status.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 status error, got %v", err)
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestGeminiEmptyReplyIsRetried(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(&genai.GenerateContentResponse{}, nil)
	models.enqueue(textResponse("second"), nil)

	g := newTestGemini(models, 2)

	resp, err := g.Generate(context.Background(), Request{Prompt: "msg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "second" {
		t.Fatalf("unexpected text: %q", resp.Text)
	}
}
