package babyjub

import (
	"math/big"
	"testing"
)

func TestElGamal_RoundTrip(t *testing.T) {
	kp, err := GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	m, err := MulBase(big.NewInt(7))
	if err != nil {
		t.Fatalf("MulBase: %v", err)
	}
	r, err := SampleScalar(nil)
	if err != nil {
		t.Fatalf("SampleScalar: %v", err)
	}
	ct, err := Encrypt(kp.Pk, m, r)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := Decrypt(kp.Sk, ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !PointEq(got, m) {
		t.Fatalf("decrypt mismatch")
	}
}

func TestElGamal_JointDecryptionViaShares(t *testing.T) {
	kp1, err := GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	kp2, err := GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	agg, err := AggregateKeys([]Point{kp1.Pk, kp2.Pk})
	if err != nil {
		t.Fatalf("AggregateKeys: %v", err)
	}

	m, err := MulBase(big.NewInt(11))
	if err != nil {
		t.Fatalf("MulBase: %v", err)
	}
	r, err := SampleScalar(nil)
	if err != nil {
		t.Fatalf("SampleScalar: %v", err)
	}
	ct, err := Encrypt(agg, m, r)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	// Neither key alone decrypts; stripping both shares does.
	s1, err := DecryptShare(kp1.Sk, ct.C0)
	if err != nil {
		t.Fatalf("DecryptShare: %v", err)
	}
	s2, err := DecryptShare(kp2.Sk, ct.C0)
	if err != nil {
		t.Fatalf("DecryptShare: %v", err)
	}
	partial := PointSub(ct.C1, s1)
	if PointEq(partial, m) {
		t.Fatalf("single share must not reveal the plaintext")
	}
	got := PointSub(partial, s2)
	if !PointEq(got, m) {
		t.Fatalf("joint decryption mismatch")
	}
}

func TestRerandomize_PreservesPlaintext(t *testing.T) {
	kp, err := GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	m, err := MulBase(big.NewInt(3))
	if err != nil {
		t.Fatalf("MulBase: %v", err)
	}
	r1, err := SampleScalar(nil)
	if err != nil {
		t.Fatalf("SampleScalar: %v", err)
	}
	ct, err := Encrypt(kp.Pk, m, r1)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	r2, err := SampleScalar(nil)
	if err != nil {
		t.Fatalf("SampleScalar: %v", err)
	}
	ct2, err := Rerandomize(kp.Pk, ct, r2)
	if err != nil {
		t.Fatalf("Rerandomize: %v", err)
	}
	if PointEq(ct.C0, ct2.C0) {
		t.Fatalf("rerandomization must change c0")
	}
	got, err := Decrypt(kp.Sk, ct2)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !PointEq(got, m) {
		t.Fatalf("plaintext changed under rerandomization")
	}
}

func TestAggregateKeys_RejectsOffCurve(t *testing.T) {
	kp, err := GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	bad := kp.Pk
	var one Element
	one.SetOne()
	bad.X.Add(&bad.X, &one)
	if _, err := AggregateKeys([]Point{kp.Pk, bad}); err == nil {
		t.Fatalf("off-curve key must be rejected")
	}
}
