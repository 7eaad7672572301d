package chain

import "testing"

func TestIsSupportedChain(t *testing.T) {
	if !IsSupportedChain(ChainPolygon) {
		t.Fatalf("expected polygon to be supported")
	}
	for _, id := range []int{ChainSolana, ChainBase, 1, 0, -1} {
		if IsSupportedChain(id) {
			t.Errorf("chain %d should not be supported", id)
		}
	}
}
