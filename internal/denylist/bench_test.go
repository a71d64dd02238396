package denylist

import (
	"fmt"
	"testing"
)

func BenchmarkContainsSensitive_NoMatch(b *testing.B) {
	dl := NewDefault()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		dl.ContainsSensitive("Fix typo in the onboarding guide heading")
	}
}

func BenchmarkContainsSensitive_Match(b *testing.B) {
	dl := NewDefault()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		dl.ContainsSensitive("Adjust Stripe payment retries")
	}
}

func BenchmarkIsCriticalPath_LargeDenylist(b *testing.B) {
	p := DefaultPatterns
	for i := 0; i < 1000; i++ {
		p.CriticalPaths = append(p.CriticalPaths, fmt.Sprintf("service-%d/**", i))
	}
	dl := New(p)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		dl.IsCriticalPath("src/components/Button.tsx")
	}
}
