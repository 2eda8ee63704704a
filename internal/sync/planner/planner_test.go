package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/types"
)

const mib = 1024 * 1024

func TestDecide(t *testing.T) {
	simple := types.SimpleFingerprint("9e107d9d372bb6826bd81d3542a419d6")
	composite := types.CompositeFingerprint("f8c91ee9c29a977092e3edfcf0db226e", 3)

	tests := []struct {
		name       string
		size       int64
		remote     types.RemoteState
		fp         types.Fingerprint
		wantAction types.Action
		wantParts  int
		wantHashed bool
		wantReason string
	}{
		{
			name:       "absent small file",
			size:       10 * mib,
			remote:     types.Absent("k"),
			wantAction: types.ActionPutWhole,
			wantParts:  1,
			wantReason: ReasonAbsent,
		},
		{
			name:       "absent large file",
			size:       40 * mib,
			remote:     types.Absent("k"),
			wantAction: types.ActionPutChunked,
			wantParts:  3,
			wantReason: ReasonAbsent,
		},
		{
			name:       "absent empty file",
			size:       0,
			remote:     types.Absent("k"),
			wantAction: types.ActionPutWhole,
			wantParts:  1,
			wantReason: ReasonAbsent,
		},
		{
			name:       "size mismatch skips hashing",
			size:       10 * mib,
			remote:     types.RemoteState{Key: "k", Exists: true, ETag: simple.String(), Size: 9 * mib},
			wantAction: types.ActionPutWhole,
			wantParts:  1,
			wantReason: ReasonSizeMismatch,
		},
		{
			name:       "same size same checksum",
			size:       10 * mib,
			remote:     types.RemoteState{Key: "k", Exists: true, ETag: simple.String(), Size: 10 * mib},
			fp:         simple,
			wantAction: types.ActionSkip,
			wantParts:  1,
			wantHashed: true,
			wantReason: ReasonUnchanged,
		},
		{
			name:       "same size different checksum",
			size:       10 * mib,
			remote:     types.RemoteState{Key: "k", Exists: true, ETag: "00000000000000000000000000000000", Size: 10 * mib},
			fp:         simple,
			wantAction: types.ActionPutWhole,
			wantParts:  1,
			wantHashed: true,
			wantReason: ReasonETagMismatch,
		},
		{
			name:       "composite match",
			size:       40 * mib,
			remote:     types.RemoteState{Key: "k", Exists: true, ETag: composite.String(), Size: 40 * mib},
			fp:         composite,
			wantAction: types.ActionSkip,
			wantParts:  3,
			wantHashed: true,
			wantReason: ReasonUnchanged,
		},
		{
			name:       "uploaded with other part size",
			size:       40 * mib,
			remote:     types.RemoteState{Key: "k", Exists: true, ETag: composite.Digest + "-5", Size: 40 * mib},
			fp:         composite,
			wantAction: types.ActionPutChunked,
			wantParts:  3,
			wantHashed: true,
			wantReason: ReasonETagMismatch,
		},
		{
			name:       "simple remote for chunked local",
			size:       40 * mib,
			remote:     types.RemoteState{Key: "k", Exists: true, ETag: composite.Digest, Size: 40 * mib},
			fp:         composite,
			wantAction: types.ActionPutChunked,
			wantParts:  3,
			wantHashed: true,
			wantReason: ReasonETagMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hashed := false
			fpFunc := func(plan types.ChunkPlan) (types.Fingerprint, error) {
				hashed = true
				assert.Equal(t, tt.wantParts, len(plan.Parts))
				return tt.fp, nil
			}

			c := types.Candidate{Path: "/data/f", Size: tt.size, Key: "k"}
			d, err := Decide(c, tt.remote, 15*mib, fpFunc)
			require.NoError(t, err)

			assert.Equal(t, tt.wantAction, d.Action)
			assert.Len(t, d.Plan.Parts, tt.wantParts)
			assert.Equal(t, tt.wantHashed, hashed)
			assert.Contains(t, d.Reason, tt.wantReason)
			if tt.wantHashed {
				require.NotNil(t, d.Fingerprint)
				assert.Equal(t, tt.fp, *d.Fingerprint)
			} else {
				assert.Nil(t, d.Fingerprint)
			}
		})
	}
}

func TestDecide_FingerprintError(t *testing.T) {
	c := types.Candidate{Path: "/data/f", Size: 10}
	remote := types.RemoteState{Key: "k", Exists: true, ETag: "x", Size: 10}

	_, err := Decide(c, remote, 15*mib, func(types.ChunkPlan) (types.Fingerprint, error) {
		return types.Fingerprint{}, errors.NewLocalError("fingerprint", "/data/f", errors.ErrShortRead)
	})
	require.Error(t, err)
	assert.Equal(t, errors.KindLocalIO, errors.Classify(err))
}

func TestDecide_InvalidChunkSize(t *testing.T) {
	_, err := Decide(types.Candidate{Size: 10}, types.Absent("k"), 0, nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindInvalidInput, errors.Classify(err))
}
