package planner

import (
	"fmt"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/prefixload/types"
)

// FingerprintFunc computes the local fingerprint of a candidate for a plan.
// It is only invoked when sizes match.
type FingerprintFunc func(plan types.ChunkPlan) (types.Fingerprint, error)

// Reasons reported in decisions.
const (
	ReasonAbsent       = "remote object absent"
	ReasonSizeMismatch = "size differs"
	ReasonETagMismatch = "checksum differs"
	ReasonUnchanged    = "checksum matches"
)

// Decide returns the action for candidate c given the remote state. It has no
// side effects besides calling fingerprint, which may fail with a local I/O error.
func Decide(
	c types.Candidate,
	remote types.RemoteState,
	chunkSize int64,
	fingerprint FingerprintFunc,
) (types.Decision, error) {
	plan, err := types.NewChunkPlan(c.Size, chunkSize)
	if err != nil {
		return types.Decision{}, errors.NewError("plan", err).
			WithPath(c.Path).
			WithKind(errors.KindInvalidInput)
	}

	if !remote.Exists {
		return upload(plan, nil, ReasonAbsent), nil
	}

	if remote.Size != c.Size {
		return upload(plan, nil, fmt.Sprintf("%s: local %d, remote %d", ReasonSizeMismatch, c.Size, remote.Size)), nil
	}

	fp, err := fingerprint(plan)
	if err != nil {
		return types.Decision{}, err
	}

	if fp.Matches(remote.ETag) {
		return types.Decision{
			Action:      types.ActionSkip,
			Plan:        plan,
			Fingerprint: &fp,
			Reason:      ReasonUnchanged,
		}, nil
	}

	return upload(plan, &fp, fmt.Sprintf("%s: local %s, remote %s", ReasonETagMismatch, fp, remote.ETag)), nil
}

func upload(plan types.ChunkPlan, fp *types.Fingerprint, reason string) types.Decision {
	action := types.ActionPutWhole
	if plan.Chunked() {
		action = types.ActionPutChunked
	}
	return types.Decision{
		Action:      action,
		Plan:        plan,
		Fingerprint: fp,
		Reason:      reason,
	}
}
