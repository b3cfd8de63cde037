package pack_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bdobrica/Kotoba/internal/kotoba/engine"
	"github.com/bdobrica/Kotoba/internal/kotoba/pack"
)

const lightsDoc = `
apiVersion: kotoba/v1
metadata:
  name: lights
slotTypes:
  - name: COLOR
    oneOf: [red, green, blue]
intents:
  - name: SET_COLOR
    slots:
      - name: Color
        type: COLOR
    utterances:
      - set the lights to {Color}
    reply: "lights are now {Color}"
  - name: LIGHTS_OFF
    utterances:
      - turn the lights off
    reply: "lights off"
questions:
  - name: HOW_BRIGHT
    slotType: NUMBER
    prompt: how bright, 0 to 100?
    reply: "brightness set to {Answer}"
    rejectReply: give me a number
    cancelReply: leaving it as is
`

func wait(t *testing.T, r *engine.Reply) (engine.Result, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Wait(ctx)
}

func installed(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.New()
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	p, err := pack.Parse([]byte(lightsDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := pack.Install(e, p); err != nil {
		t.Fatalf("Install: %v", err)
	}
	return e
}

func TestInstall_IntentReplies(t *testing.T) {
	e := installed(t)

	res, err := wait(t, e.HandleCommand(context.Background(), "set the lights to BLUE"))
	if err != nil {
		t.Fatalf("HandleCommand: %v", err)
	}
	if res.Name != "SET_COLOR" {
		t.Fatalf("matched %q", res.Name)
	}
	if res.Response != "lights are now blue" {
		t.Errorf("reply template: got %q", res.Response)
	}

	res, err = wait(t, e.HandleCommand(context.Background(), "turn the lights off"))
	if err != nil {
		t.Fatalf("HandleCommand: %v", err)
	}
	if res.Response != "lights off" {
		t.Errorf("slotless reply: got %q", res.Response)
	}

	if _, err := wait(t, e.HandleCommand(context.Background(), "set the lights to purple")); !errors.Is(err, engine.ErrNoMatch) {
		t.Errorf("value outside oneOf: got %v, want ErrNoMatch", err)
	}
}

func TestInstall_QuestionFlow(t *testing.T) {
	e := installed(t)

	res, err := wait(t, e.Ask(context.Background(), "HOW_BRIGHT"))
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Response != "how bright, 0 to 100?" {
		t.Errorf("prompt: %q", res.Response)
	}

	res, err = wait(t, e.HandleCommand(context.Background(), "75"))
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if res.Response != "brightness set to 75" {
		t.Errorf("answer reply: %q", res.Response)
	}

	if _, err := wait(t, e.Ask(context.Background(), "HOW_BRIGHT")); err != nil {
		t.Fatalf("Ask again: %v", err)
	}
	res, err = wait(t, e.HandleCommand(context.Background(), "never mind"))
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if res.Kind != engine.KindCancelled || res.Response != "leaving it as is" {
		t.Errorf("cancel result: %+v", res)
	}

	if _, err := wait(t, e.Ask(context.Background(), "HOW_BRIGHT")); err != nil {
		t.Fatalf("Ask again: %v", err)
	}
	res, err = wait(t, e.HandleCommand(context.Background(), "quite dim"))
	if !errors.Is(err, engine.ErrAnswerRejected) {
		t.Fatalf("got %v, want ErrAnswerRejected", err)
	}
	if res.Response != "give me a number" {
		t.Errorf("reject reply: %q", res.Response)
	}
}

func TestInstall_NameCollision(t *testing.T) {
	e, err := engine.New()
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	if _, err := e.RegisterIntent(engine.IntentSpec{Name: "SET_COLOR", Utterances: []string{"x"}}); err != nil {
		t.Fatalf("RegisterIntent: %v", err)
	}

	p, err := pack.Parse([]byte(lightsDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := pack.Install(e, p); err == nil {
		t.Error("Install over a taken intent name must fail")
	}
}
