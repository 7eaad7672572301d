package service

import (
	"context"
	"testing"
)

type fakeDenylist struct {
	denied map[string]bool
}

func (f *fakeDenylist) IsDenylisted(_ context.Context, wallet string) (bool, error) {
	return f.denied[wallet], nil
}

func TestHeuristicRiskScorer_CleanWallet(t *testing.T) {
	scorer := NewHeuristicRiskScorer(&fakeDenylist{}, nil, 20)

	score, err := scorer.Score(context.Background(), "0x52908400098527886e0f7030069857d2e4169ee7", "1.2.3.4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 0 {
		t.Fatalf("clean wallet score = %v, want 0", score)
	}
}

func TestHeuristicRiskScorer_MalformedAddress(t *testing.T) {
	scorer := NewHeuristicRiskScorer(&fakeDenylist{}, nil, 20)

	score, err := scorer.Score(context.Background(), "not-an-address", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 1.0 {
		t.Fatalf("malformed address score = %v, want 1.0", score)
	}
}

func TestHeuristicRiskScorer_Denylisted(t *testing.T) {
	wallet := "0x52908400098527886e0f7030069857d2e4169ee7"
	scorer := NewHeuristicRiskScorer(&fakeDenylist{denied: map[string]bool{wallet: true}}, nil, 20)

	score, err := scorer.Score(context.Background(), wallet, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 1.0 {
		t.Fatalf("denylisted wallet score = %v, want 1.0", score)
	}
}

func TestHeuristicRiskScorer_VanityRun(t *testing.T) {
	scorer := NewHeuristicRiskScorer(&fakeDenylist{}, nil, 20)

	score, err := scorer.Score(context.Background(), "0x0000000000aaa527886e0f7030069857d2e4169e", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score < 0.4 {
		t.Fatalf("vanity address score = %v, want >= 0.4", score)
	}
}

func TestHeuristicRiskScorer_Deterministic(t *testing.T) {
	scorer := NewHeuristicRiskScorer(&fakeDenylist{}, nil, 20)
	wallet := "0x52908400098527886e0f7030069857d2e4169ee7"

	first, err := scorer.Score(context.Background(), wallet, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := scorer.Score(context.Background(), wallet, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again != first {
			t.Fatalf("score changed across identical calls: %v then %v", first, again)
		}
	}
}
