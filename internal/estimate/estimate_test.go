package estimate_test

import (
	"math/rand"
	"testing"

	"plexconverter/internal/estimate"
)

func TestEstimateKnownCodecs(t *testing.T) {
	est := estimate.New()
	tests := []struct {
		size      uint64
		codec     string
		wantEst   uint64
		wantSaved uint64
	}{
		{1000, "h264", 550, 450},
		{1000, "prores", 200, 800},
		{1000, "mpeg2video", 350, 650},
		{1000, "unknownCodec", 1000, 0},
		{1000, "H264", 1000, 0},
		{0, "h264", 0, 0},
		{999, "h264", 549, 450},
	}
	for _, tt := range tests {
		gotEst, gotSaved := est.Estimate(tt.size, tt.codec)
		if gotEst != tt.wantEst || gotSaved != tt.wantSaved {
			t.Fatalf("Estimate(%d, %q) = (%d, %d), want (%d, %d)", tt.size, tt.codec, gotEst, gotSaved, tt.wantEst, tt.wantSaved)
		}
	}
}

func TestEstimateHandlesLargeSizes(t *testing.T) {
	est := estimate.New()
	const size = uint64(1) << 62
	got, saved := est.Estimate(size, "h264")
	if got > size || got+saved != size {
		t.Fatalf("inconsistent estimate for large size: est=%d saved=%d", got, saved)
	}
	if want := size/10000*5500 + (size%10000)*5500/10000; got != want {
		t.Fatalf("Estimate(2^62) = %d, want %d", got, want)
	}
}

func TestEstimateNeverExceedsOriginal(t *testing.T) {
	est := estimate.New()
	rng := rand.New(rand.NewSource(7))
	codecs := []string{"h264", "vc1", "dv", "cinepak", "theora", "mystery"}
	for i := 0; i < 1000; i++ {
		size := rng.Uint64() >> uint(rng.Intn(64))
		codec := codecs[rng.Intn(len(codecs))]
		got, saved := est.Estimate(size, codec)
		if got > size || got+saved != size {
			t.Fatalf("Estimate(%d, %q) = (%d, %d) breaks size bounds", size, codec, got, saved)
		}
	}
}

func TestWithFactorsOverridesTable(t *testing.T) {
	est := estimate.New(estimate.WithFactors(map[string]float64{"h264": 0.5, "xvid": 0.4, "bogus": 1.2}))
	if got, _ := est.Estimate(1000, "h264"); got != 500 {
		t.Fatalf("override not applied: %d", got)
	}
	if got, _ := est.Estimate(1000, "xvid"); got != 600 {
		t.Fatalf("added codec not applied: %d", got)
	}
	if est.Factor("bogus") != 0 {
		t.Fatal("out-of-range factor should be ignored")
	}
	if est.Factor("prores") != 0.8 {
		t.Fatalf("default factor lost: %v", est.Factor("prores"))
	}
}

func TestExcludedCodecsAreCaseInsensitive(t *testing.T) {
	est := estimate.New()
	for _, codec := range []string{"HEVC", "hevc", " Av1 ", "VP9", "H.265"} {
		if !est.IsExcluded(codec) {
			t.Fatalf("expected %q to be excluded", codec)
		}
		if est.Eligible(codec) {
			t.Fatalf("expected %q to be ineligible", codec)
		}
	}
	if est.IsExcluded("h264") {
		t.Fatal("h264 must not be excluded")
	}
	if est.Eligible("") {
		t.Fatal("empty codec must be ineligible")
	}
	custom := estimate.New(estimate.WithExcluded([]string{"MPEG4"}))
	if !custom.IsExcluded("mpeg4") || custom.IsExcluded("hevc") {
		t.Fatal("custom excluded set not applied")
	}
}

func TestEstimateIsExactForFineGrainedFactors(t *testing.T) {
	est := estimate.New(estimate.WithFactors(map[string]float64{
		"x":    0.12345,
		"tiny": 0.000001,
	}))
	tests := []struct {
		size  uint64
		codec string
		want  uint64
	}{
		{100000, "x", 87655},
		{3, "x", 2},
		{1_000_000, "tiny", 999_999},
		{999_999, "tiny", 999_998},
	}
	for _, tt := range tests {
		got, saved := est.Estimate(tt.size, tt.codec)
		if got != tt.want || got+saved != tt.size {
			t.Fatalf("Estimate(%d, %q) = (%d, %d), want estimate %d", tt.size, tt.codec, got, saved, tt.want)
		}
	}
	if est.Factor("x") != 0.12345 {
		t.Fatalf("Factor(x) = %v", est.Factor("x"))
	}
}
