package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestBreakdownKeepsFirstAppearanceOrder(t *testing.T) {
	b := NewBreakdown()
	b.Add("manutencao", decimal.NewFromInt(300))
	b.Add("aluguel", decimal.NewFromInt(1000))
	b.Add("manutencao", decimal.RequireFromString("0.50"))
	b.Touch("limpeza")

	keys := b.Keys()
	want := []string{"manutencao", "aluguel", "limpeza"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}
	if v, _ := b.Get("manutencao"); !v.Equal(decimal.RequireFromString("300.5")) {
		t.Fatalf("manutencao = %s", v)
	}
	if !b.Total().Equal(decimal.RequireFromString("1300.5")) {
		t.Fatalf("total = %s", b.Total())
	}
}

func TestBreakdownJSON(t *testing.T) {
	b := NewBreakdown()
	b.Add("zeta", decimal.NewFromInt(1))
	b.Add("alpha", decimal.RequireFromString("2.25"))

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"zeta":"1","alpha":"2.25"}` {
		t.Fatalf("unexpected encoding %s", data)
	}

	back := NewBreakdown()
	if err := json.Unmarshal(data, back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(b) {
		t.Fatalf("round trip mismatch: %s", data)
	}
}

func TestBreakdownEmpty(t *testing.T) {
	var b *Breakdown
	if b.Len() != 0 || b.Keys() != nil {
		t.Fatalf("nil breakdown should be empty")
	}
	data, err := json.Marshal(NewBreakdown())
	if err != nil || string(data) != "{}" {
		t.Fatalf("expected {}, got %s (err=%v)", data, err)
	}
	if !NewBreakdown().Equal(NewBreakdown()) {
		t.Fatalf("empty breakdowns should be equal")
	}
}
