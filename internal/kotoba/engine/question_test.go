package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bdobrica/Kotoba/internal/kotoba/engine"
	"github.com/bdobrica/Kotoba/internal/kotoba/slots"
)

func mustRegisterQuestion(t *testing.T, e *engine.Engine, spec engine.QuestionSpec) {
	t.Helper()
	ok, err := e.RegisterQuestion(spec)
	if err != nil {
		t.Fatalf("RegisterQuestion(%s): %v", spec.Name, err)
	}
	if !ok {
		t.Fatalf("RegisterQuestion(%s): duplicate name", spec.Name)
	}
}

func TestQuestion_RoundTrip(t *testing.T) {
	e := newEngine(t)

	var answered any
	mustRegisterQuestion(t, e, engine.QuestionSpec{
		Name:     "HOW_MANY",
		SlotType: slots.TypeNumber,
		Prompt: func(ctx context.Context, m *engine.Match) (string, error) {
			return "how many?", nil
		},
		OnAnswer: func(ctx context.Context, m *engine.Match) (string, error) {
			answered = m.Values[0]
			return "noted", nil
		},
		OnReject: func(ctx context.Context, m *engine.Match) (string, error) {
			return "that is not a number", nil
		},
	})

	res, err := wait(t, e.Ask(context.Background(), "HOW_MANY"))
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Name != "HOW_MANY" || res.Response != "how many?" {
		t.Fatalf("Ask result: %+v", res)
	}

	res, err = wait(t, e.HandleCommand(context.Background(), "42"))
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if res.Name != "HOW_MANY" || res.Kind != engine.KindQuestion {
		t.Fatalf("answer result: %+v", res)
	}
	if n, ok := answered.(float64); !ok || n != 42 {
		t.Errorf("OnAnswer value: got %v (%T), want 42 (float64)", answered, answered)
	}
	if res.Response != "noted" {
		t.Errorf("Response: got %q", res.Response)
	}
}

func TestQuestion_RejectedAnswer(t *testing.T) {
	e := newEngine(t)

	rejected := false
	mustRegisterQuestion(t, e, engine.QuestionSpec{
		Name:     "HOW_MANY",
		SlotType: slots.TypeNumber,
		OnAnswer: func(ctx context.Context, m *engine.Match) (string, error) { return "", nil },
		OnReject: func(ctx context.Context, m *engine.Match) (string, error) {
			rejected = true
			return "numbers only please", nil
		},
	})

	if _, err := wait(t, e.Ask(context.Background(), "HOW_MANY")); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	res, err := wait(t, e.HandleCommand(context.Background(), "a whole bunch"))
	if !errors.Is(err, engine.ErrAnswerRejected) {
		t.Fatalf("got %v, want ErrAnswerRejected", err)
	}
	if res.Name != "HOW_MANY" {
		t.Errorf("rejection should be tagged with the question name, got %q", res.Name)
	}
	if !rejected {
		t.Error("OnReject was not invoked")
	}
	if res.Response != "numbers only please" {
		t.Errorf("Response: got %q", res.Response)
	}

	// The failed answer consumed the question; the same command now flows to
	// the ordinary dispatcher and misses.
	if _, err := wait(t, e.HandleCommand(context.Background(), "a whole bunch")); !errors.Is(err, engine.ErrNoMatch) {
		t.Errorf("after rejection the question must be gone: %v", err)
	}
}

func TestQuestion_Cancellation(t *testing.T) {
	e := newEngine(t)

	cancelled := false
	answered := false
	mustRegisterQuestion(t, e, engine.QuestionSpec{
		Name:     "HOW_MANY",
		SlotType: slots.TypeNumber,
		OnAnswer: func(ctx context.Context, m *engine.Match) (string, error) {
			answered = true
			return "", nil
		},
		OnReject: func(ctx context.Context, m *engine.Match) (string, error) { return "", nil },
		OnCancel: func(ctx context.Context, m *engine.Match) (string, error) {
			cancelled = true
			return "okay, dropping it", nil
		},
	})

	if _, err := wait(t, e.Ask(context.Background(), "HOW_MANY")); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	res, err := wait(t, e.HandleCommand(context.Background(), "never mind"))
	if err != nil {
		t.Fatalf("cancellation resolves as answered: %v", err)
	}
	if res.Kind != engine.KindCancelled || res.Name != "HOW_MANY" {
		t.Fatalf("result: %+v", res)
	}
	if !cancelled || answered {
		t.Errorf("callbacks: cancelled=%v answered=%v", cancelled, answered)
	}
}

func TestQuestion_NestedAsk(t *testing.T) {
	e := newEngine(t)

	var first, second any
	mustRegisterQuestion(t, e, engine.QuestionSpec{
		Name:     "SECOND",
		SlotType: slots.TypeWord,
		OnAnswer: func(ctx context.Context, m *engine.Match) (string, error) {
			second = m.Values[0]
			return "", nil
		},
		OnReject: func(ctx context.Context, m *engine.Match) (string, error) { return "", nil },
	})
	mustRegisterQuestion(t, e, engine.QuestionSpec{
		Name:     "FIRST",
		SlotType: slots.TypeWord,
		OnAnswer: func(ctx context.Context, m *engine.Match) (string, error) {
			first = m.Values[0]
			// Asking from inside a success callback must immediately make the
			// new question the active one for this user.
			e.AskFor(ctx, engine.AskRequest{Question: "SECOND", UserKey: m.UserKey})
			return "", nil
		},
		OnReject: func(ctx context.Context, m *engine.Match) (string, error) { return "", nil },
	})

	user := "@alice:example.com"
	if _, err := wait(t, e.AskFor(context.Background(), engine.AskRequest{Question: "FIRST", UserKey: user})); err != nil {
		t.Fatalf("Ask FIRST: %v", err)
	}

	res, err := wait(t, e.Handle(context.Background(), engine.Request{Command: "alpha", UserKey: user}))
	if err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if res.Name != "FIRST" {
		t.Fatalf("first answer resolved as %q", res.Name)
	}

	res, err = wait(t, e.Handle(context.Background(), engine.Request{Command: "beta", UserKey: user}))
	if err != nil {
		t.Fatalf("second answer: %v", err)
	}
	if res.Name != "SECOND" {
		t.Fatalf("second answer resolved as %q, want SECOND", res.Name)
	}
	if first != "alpha" || second != "beta" {
		t.Errorf("answers: first=%v second=%v", first, second)
	}
}

func TestQuestion_PerUserIsolation(t *testing.T) {
	e := newEngine(t)

	mustRegisterQuestion(t, e, engine.QuestionSpec{
		Name:     "NAME",
		SlotType: slots.TypeWord,
		OnAnswer: func(ctx context.Context, m *engine.Match) (string, error) { return "", nil },
		OnReject: func(ctx context.Context, m *engine.Match) (string, error) { return "", nil },
	})
	mustRegister(t, e, engine.IntentSpec{Name: "HELLO", Utterances: []string{"hi"}})

	if _, err := wait(t, e.AskFor(context.Background(), engine.AskRequest{Question: "NAME", UserKey: "@alice:example.com"})); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	// Bob has no pending question; his command goes to the dispatcher.
	res, err := wait(t, e.Handle(context.Background(), engine.Request{Command: "hi", UserKey: "@bob:example.com"}))
	if err != nil {
		t.Fatalf("bob: %v", err)
	}
	if res.Name != "HELLO" {
		t.Errorf("bob matched %q", res.Name)
	}

	// Alice's pending question is still live afterwards.
	res, err = wait(t, e.Handle(context.Background(), engine.Request{Command: "alice", UserKey: "@alice:example.com"}))
	if err != nil {
		t.Fatalf("alice: %v", err)
	}
	if res.Name != "NAME" {
		t.Errorf("alice matched %q", res.Name)
	}
}

func TestAsk_UnknownQuestion(t *testing.T) {
	e := newEngine(t)
	if _, err := wait(t, e.Ask(context.Background(), "NOPE")); !errors.Is(err, engine.ErrUnknownQuestion) {
		t.Fatalf("got %v, want ErrUnknownQuestion", err)
	}
}

func TestRegisterQuestion_NameCollisions(t *testing.T) {
	e := newEngine(t)
	mustRegister(t, e, engine.IntentSpec{Name: "TAKEN", Utterances: []string{"x"}})

	ok, err := e.RegisterQuestion(engine.QuestionSpec{
		Name:     "TAKEN",
		SlotType: slots.TypeWord,
		OnAnswer: func(ctx context.Context, m *engine.Match) (string, error) { return "", nil },
		OnReject: func(ctx context.Context, m *engine.Match) (string, error) { return "", nil },
	})
	if err != nil {
		t.Fatalf("RegisterQuestion: %v", err)
	}
	if ok {
		t.Error("question sharing an intent's name must be refused")
	}

	mustRegisterQuestion(t, e, engine.QuestionSpec{
		Name:     "FREE",
		SlotType: slots.TypeWord,
		OnAnswer: func(ctx context.Context, m *engine.Match) (string, error) { return "", nil },
		OnReject: func(ctx context.Context, m *engine.Match) (string, error) { return "", nil },
	})
	// The auto-generated cancel intent's name is reserved too.
	ok, err = e.RegisterIntent(engine.IntentSpec{Name: "FREE__cancel", Utterances: []string{"x"}})
	if err != nil {
		t.Fatalf("RegisterIntent: %v", err)
	}
	if ok {
		t.Error("cancel-intent name must be reserved")
	}
}

func TestDeregisterQuestion(t *testing.T) {
	e := newEngine(t)
	mustRegisterQuestion(t, e, engine.QuestionSpec{
		Name:     "Q",
		SlotType: slots.TypeWord,
		OnAnswer: func(ctx context.Context, m *engine.Match) (string, error) { return "", nil },
		OnReject: func(ctx context.Context, m *engine.Match) (string, error) { return "", nil },
	})

	if _, err := wait(t, e.Ask(context.Background(), "Q")); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !e.DeregisterQuestion("Q") {
		t.Fatal("DeregisterQuestion: got false")
	}
	if e.DeregisterQuestion("Q") {
		t.Error("DeregisterQuestion twice: got true")
	}

	// The pending entry was cleared with the question.
	if _, err := wait(t, e.HandleCommand(context.Background(), "anything")); !errors.Is(err, engine.ErrNoMatch) {
		t.Errorf("got %v, want ErrNoMatch after deregistration", err)
	}

	// Both names are free again.
	mustRegisterQuestion(t, e, engine.QuestionSpec{
		Name:     "Q",
		SlotType: slots.TypeWord,
		OnAnswer: func(ctx context.Context, m *engine.Match) (string, error) { return "", nil },
		OnReject: func(ctx context.Context, m *engine.Match) (string, error) { return "", nil },
	})
}

func TestDeregisterQuestion_ReleasesSlotTypes(t *testing.T) {
	e := newEngine(t)
	if err := e.AddSlotType(slots.SlotType{
		Name:    "COLOR",
		Matcher: slots.MatchAnyOf("red", "blue"),
	}); err != nil {
		t.Fatalf("AddSlotType: %v", err)
	}
	mustRegisterQuestion(t, e, engine.QuestionSpec{
		Name:     "FAVORITE",
		SlotType: "COLOR",
		OnAnswer: func(ctx context.Context, m *engine.Match) (string, error) { return "", nil },
		OnReject: func(ctx context.Context, m *engine.Match) (string, error) { return "", nil },
		OnCancel: func(ctx context.Context, m *engine.Match) (string, error) { return "", nil },
	})

	if err := e.RemoveSlotType("COLOR"); !errors.Is(err, slots.ErrSlotTypeInUse) {
		t.Fatalf("RemoveSlotType while referenced: got %v, want ErrSlotTypeInUse", err)
	}

	if !e.DeregisterQuestion("FAVORITE") {
		t.Fatal("DeregisterQuestion: got false")
	}
	// Nothing references the type anymore; removal must succeed now. The
	// cancel intent's reserved type is released the same way.
	if err := e.RemoveSlotType("COLOR"); err != nil {
		t.Errorf("RemoveSlotType after deregistration: %v", err)
	}
	if err := e.RemoveSlotType(slots.TypeNevermind); err != nil {
		t.Errorf("RemoveSlotType(%s) after deregistration: %v", slots.TypeNevermind, err)
	}
}
