package slots_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/bdobrica/Kotoba/internal/kotoba/slots"
)

func builtin(t *testing.T, name string) *slots.SlotType {
	t.Helper()
	r := slots.NewRegistry()
	if err := slots.RegisterDefaults(r); err != nil {
		t.Fatalf("RegisterDefaults: %v", err)
	}
	st, err := r.Get(name)
	if err != nil {
		t.Fatalf("Get(%s): %v", name, err)
	}
	return st
}

func TestEvaluate_ExactIsCaseInsensitive(t *testing.T) {
	st := &slots.SlotType{Name: "GREETING", Matcher: slots.MatchExact("Hello")}

	for _, fragment := range []string{"hello", "HELLO", "Hello"} {
		value, ok := slots.Evaluate(st, fragment)
		if !ok {
			t.Errorf("Evaluate(%q): expected match", fragment)
			continue
		}
		// The original fragment is preserved, not the stored lowercase form.
		if value != fragment {
			t.Errorf("Evaluate(%q): got %v, want original fragment", fragment, value)
		}
	}

	if _, ok := slots.Evaluate(st, "goodbye"); ok {
		t.Error("Evaluate(goodbye): expected no match")
	}
}

func TestEvaluate_SetIsCaseInsensitive(t *testing.T) {
	st := &slots.SlotType{Name: "COLOR", Matcher: slots.MatchAnyOf("Red", "Blue")}

	if _, ok := slots.Evaluate(st, "RED"); !ok {
		t.Error("Evaluate(RED): expected match")
	}
	if _, ok := slots.Evaluate(st, "green"); ok {
		t.Error("Evaluate(green): expected no match")
	}
}

func TestEvaluate_Pattern(t *testing.T) {
	st := &slots.SlotType{Name: "CODE", Matcher: slots.MatchPattern(regexp.MustCompile(`^[A-Z]{3}-\d+$`))}

	if value, ok := slots.Evaluate(st, "ABC-42"); !ok || value != "ABC-42" {
		t.Errorf("Evaluate(ABC-42): got (%v, %v), want (ABC-42, true)", value, ok)
	}
	if _, ok := slots.Evaluate(st, "abc-42"); ok {
		t.Error("Evaluate(abc-42): expected no match")
	}
}

func TestEvaluate_TransformEmptyStringFails(t *testing.T) {
	st := &slots.SlotType{Name: "TRIM", Matcher: slots.MatchTransform(func(fragment string) (any, bool) {
		return "", true
	})}
	if _, ok := slots.Evaluate(st, "anything"); ok {
		t.Error("empty-string transform result must count as no match")
	}
}

func TestNumber(t *testing.T) {
	st := builtin(t, slots.TypeNumber)

	tests := []struct {
		fragment string
		want     float64
		ok       bool
	}{
		{"9,000.01", 9000.01, true},
		{"42", 42, true},
		{"0", 0, true}, // zero is a valid value, not a failed match
		{"-3.5", -3.5, true},
		{"twelve", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.fragment, func(t *testing.T) {
			value, ok := slots.Evaluate(st, tt.fragment)
			if ok != tt.ok {
				t.Fatalf("ok: got %v, want %v", ok, tt.ok)
			}
			if !tt.ok {
				return
			}
			n, isFloat := value.(float64)
			if !isFloat {
				t.Fatalf("value: got %T, want float64", value)
			}
			if n != tt.want {
				t.Errorf("value: got %v, want %v", n, tt.want)
			}
		})
	}
}

func TestCurrency(t *testing.T) {
	st := builtin(t, slots.TypeCurrency)

	value, ok := slots.Evaluate(st, "$1,234.50")
	if !ok {
		t.Fatal("Evaluate($1,234.50): expected match")
	}
	if n := value.(float64); n != 1234.5 {
		t.Errorf("value: got %v, want 1234.5", n)
	}

	if _, ok := slots.Evaluate(st, "$"); ok {
		t.Error("Evaluate($): expected no match")
	}
}

func TestWord(t *testing.T) {
	st := builtin(t, slots.TypeWord)

	if st.Capture() != `\w+` {
		t.Errorf("Capture: got %q, want \\w+", st.Capture())
	}
	if _, ok := slots.Evaluate(st, "hello"); !ok {
		t.Error("Evaluate(hello): expected match")
	}
	if _, ok := slots.Evaluate(st, "two words"); ok {
		t.Error("Evaluate(two words): expected no match")
	}
}

func TestDate(t *testing.T) {
	st := builtin(t, slots.TypeDate)

	value, ok := slots.Evaluate(st, "2024-05-17")
	if !ok {
		t.Fatal("Evaluate(2024-05-17): expected match")
	}
	d, isTime := value.(time.Time)
	if !isTime {
		t.Fatalf("value: got %T, want time.Time", value)
	}
	if d.Year() != 2024 || d.Month() != time.May || d.Day() != 17 {
		t.Errorf("value: got %v, want 2024-05-17", d)
	}

	value, ok = slots.Evaluate(st, "tomorrow")
	if !ok {
		t.Fatal("Evaluate(tomorrow): expected match")
	}
	want := time.Now().AddDate(0, 0, 1)
	got := value.(time.Time)
	if got.Year() != want.Year() || got.YearDay() != want.YearDay() {
		t.Errorf("tomorrow: got %v", got)
	}

	if _, ok := slots.Evaluate(st, "not a date"); ok {
		t.Error("Evaluate(not a date): expected no match")
	}
}

func TestSlackRefs(t *testing.T) {
	name := builtin(t, slots.TypeSlackName)
	room := builtin(t, slots.TypeSlackRoom)

	if _, ok := slots.Evaluate(name, "<@U12345>"); !ok {
		t.Error("SLACK_NAME should match <@U12345>")
	}
	if _, ok := slots.Evaluate(name, "@someone"); ok {
		t.Error("SLACK_NAME should not match bare @someone")
	}
	if _, ok := slots.Evaluate(room, "<#C67890>"); !ok {
		t.Error("SLACK_ROOM should match <#C67890>")
	}
	if _, ok := slots.Evaluate(room, "<@U12345>"); ok {
		t.Error("SLACK_ROOM should not match a user mention")
	}
}

func TestNevermind(t *testing.T) {
	st := builtin(t, slots.TypeNevermind)

	for _, phrase := range []string{"never mind", "Nevermind", "CANCEL", "forget it"} {
		if _, ok := slots.Evaluate(st, phrase); !ok {
			t.Errorf("Evaluate(%q): expected match", phrase)
		}
	}
	if _, ok := slots.Evaluate(st, "yes please"); ok {
		t.Error("Evaluate(yes please): expected no match")
	}
}
