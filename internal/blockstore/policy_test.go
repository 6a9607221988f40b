package blockstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_CheckWrite_By_Policy(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		policy      ImmutabilityPolicy
		currentSize int
		wantErr     error
	}{
		{name: "NoneAllowsWrite", policy: PolicyNone, currentSize: 10, wantErr: nil},
		{name: "ReadOnlyDeniesWrite", policy: PolicyReadOnly, currentSize: 0, wantErr: ErrPolicyDenied},
		{name: "AppendOnlyAllowsWrite", policy: PolicyAppendOnly, currentSize: 10, wantErr: nil},
		{name: "WORMAllowsFirstWrite", policy: PolicyWORM, currentSize: 0, wantErr: nil},
		{name: "WORMDeniesSecondWrite", policy: PolicyWORM, currentSize: 10, wantErr: ErrPolicyDenied},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := checkWrite(tc.policy, tc.currentSize)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func Test_CheckDelete_Only_Allowed_Under_PolicyNone(t *testing.T) {
	t.Parallel()

	require.NoError(t, checkDelete(PolicyNone))

	for _, p := range []ImmutabilityPolicy{PolicyReadOnly, PolicyAppendOnly, PolicyWORM} {
		assert.ErrorIs(t, checkDelete(p), ErrPolicyDenied)
	}
}
