package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrappersCarrySentinel(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{IOf("missing %s", "dir"), ErrIO},
		{Formatf("bad header"), ErrFormat},
		{Geometryf("empty mesh"), ErrGeometry},
		{Validationf("pitch %g", -1.0), ErrValidation},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.want) {
			t.Errorf("%v does not wrap %v", tc.err, tc.want)
		}
		if got := Kind(tc.err); got != tc.want {
			t.Errorf("Kind(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestWrappersFormatMessage(t *testing.T) {
	err := Validationf("pitch must be positive, got %g", -0.5)
	want := "validation failure: pitch must be positive, got -0.5"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}

func TestKindSurvivesFurtherWrapping(t *testing.T) {
	inner := Geometryf("degenerate face")
	outer := fmt.Errorf("processing heart: %w", inner)
	if Kind(outer) != ErrGeometry {
		t.Errorf("Kind lost through wrapping: %v", Kind(outer))
	}
}

func TestKindOfUnclassifiedError(t *testing.T) {
	if got := Kind(errors.New("plain")); got != nil {
		t.Errorf("Expected nil kind, got %v", got)
	}
	if got := Kind(nil); got != nil {
		t.Errorf("Expected nil kind for nil error, got %v", got)
	}
}
