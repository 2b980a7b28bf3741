package require

import (
	"errors"
	"testing"
)

func TestPassingChecks(t *testing.T) {
	NoError(t, nil)
	Error(t, errors.New("failed"))
	Equal(t, []int{1, 2}, []int{1, 2})
	True(t, 1+1 == 2)
	NotNil(t, &struct{}{})
}
