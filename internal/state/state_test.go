package state

import (
	"bytes"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/Manta-Network/zkShuffle/internal/babyjub"
	"github.com/Manta-Network/zkShuffle/internal/deck"
)

func TestAppHash_StableAcrossMapOrder(t *testing.T) {
	s1 := NewState()
	s1.Height = 7
	s1.AccountKeys["bob"] = []byte{1}
	s1.AccountKeys["alice"] = []byte{2}
	s1.Games[3] = &Game{ID: 3, Phase: PhaseCreated}
	s1.Games[1] = &Game{ID: 1, Phase: PhaseCreated}

	s2 := NewState()
	s2.Height = 7
	s2.AccountKeys["alice"] = []byte{2}
	s2.AccountKeys["bob"] = []byte{1}
	s2.Games[1] = &Game{ID: 1, Phase: PhaseCreated}
	s2.Games[3] = &Game{ID: 3, Phase: PhaseCreated}

	h1 := s1.AppHash()
	h2 := s2.AppHash()
	if !bytes.Equal(h1, h2) {
		t.Fatalf("expected stable app hash; h1=%x h2=%x", h1, h2)
	}

	// Any semantic change should change the hash.
	s2.Games[1].Phase = PhaseRegistration
	h3 := s2.AppHash()
	if bytes.Equal(h1, h3) {
		t.Fatalf("expected hash to change after state mutation")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	home := filepath.Join(t.TempDir(), "app")
	s := NewState()
	s.Height = 12
	s.AccountKeys["alice"] = bytes.Repeat([]byte{7}, 32)
	s.NonceMax["alice"] = 3
	s.Games[9] = &Game{
		ID:         9,
		Phase:      PhaseShuffle,
		NumPlayers: 2,
		NumCards:   30,
		Players:    []Player{{Addr: "alice", PkX: "1", PkY: "2"}},
	}
	if err := s.Save(home); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(home)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(s.AppHash(), loaded.AppHash()) {
		t.Fatalf("app hash changed across save/load")
	}
}

func TestLoad_MissingFileGivesFreshState(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Height != 0 || len(s.Games) != 0 {
		t.Fatalf("expected fresh state")
	}
}

func TestClone_IsDeep(t *testing.T) {
	s := NewState()
	s.Games[1] = &Game{ID: 1, Phase: PhaseCreated, NumPlayers: 2}
	c, err := s.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	c.Games[1].Phase = PhaseError
	if s.Games[1].Phase != PhaseCreated {
		t.Fatalf("clone mutation leaked into the original")
	}
}

func TestDeck_FormatParseRoundTrip(t *testing.T) {
	initial, err := deck.Initial(52)
	if err != nil {
		t.Fatalf("Initial: %v", err)
	}
	stored := FormatDeck(initial)
	back, err := ParseDeck(stored)
	if err != nil {
		t.Fatalf("ParseDeck: %v", err)
	}
	if back.Size() != 52 {
		t.Fatalf("size mismatch")
	}
	for i := 0; i < 52; i++ {
		if !back.X1[i].Equal(&initial.X1[i]) {
			t.Fatalf("X1[%d] mismatch", i)
		}
	}
	if back.Selector1.Cmp(initial.Selector1) != 0 {
		t.Fatalf("selector mismatch")
	}
}

func TestParseElement_Rejects(t *testing.T) {
	if _, err := ParseElement(""); err == nil {
		t.Fatalf("empty string must be rejected")
	}
	if _, err := ParseElement("0x12"); err == nil {
		t.Fatalf("non-decimal must be rejected")
	}
	if _, err := ParseElement("-5"); err == nil {
		t.Fatalf("negative must be rejected")
	}
}

func TestPoint_FormatParseRoundTrip(t *testing.T) {
	p, err := babyjub.MulBase(big.NewInt(42))
	if err != nil {
		t.Fatalf("MulBase: %v", err)
	}
	x, y := FormatPoint(p)
	back, err := ParsePoint(x, y)
	if err != nil {
		t.Fatalf("ParsePoint: %v", err)
	}
	if !babyjub.PointEq(p, back) {
		t.Fatalf("point round trip mismatch")
	}
}
