package job_test

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"billing/internal/core/domain/model/job"
	"billing/internal/core/domain/model/kernel"
	"billing/internal/core/domain/model/schedule"
	"billing/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2024, time.January, 5, 9, 0, 0, 0, time.UTC)

func newPendingJob(t *testing.T) *job.Job {
	t.Helper()
	j, err := job.NewJob(7, 3, kernel.MustMoney("35120.55"), schedule.MustSpec(0, 10, 3), false, created)
	require.NoError(t, err)
	return j
}

func TestNewJob(t *testing.T) {
	t.Run("creates pending job", func(t *testing.T) {
		j := newPendingJob(t)

		require.NoError(t, j.Validate())
		assert.Equal(t, job.Pending, j.Status())
		assert.Equal(t, int64(0), j.ID())
		assert.Equal(t, int64(7), j.UserID())
		assert.Equal(t, 3, j.SalePoint())
		assert.Equal(t, "35120.55", j.ValueToBill().String())
		assert.Equal(t, "0 10 3 * *", j.Spec().String())
		assert.Equal(t, created, j.CreatedAt())
		assert.Equal(t, created, j.UpdatedAt())
		assert.Nil(t, j.ClaimToken())
		assert.Nil(t, j.Authorization())
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		testCases := []struct {
			name      string
			userID    int64
			salePoint int
			value     kernel.Money
			spec      schedule.Spec
			expected  string
		}{
			{"zero user", 0, 3, kernel.MustMoney("1"), schedule.MustSpec(0, 10, 3), "userId"},
			{"zero sale point", 7, 0, kernel.MustMoney("1"), schedule.MustSpec(0, 10, 3), "salePoint"},
			{"zero value", 7, 3, kernel.MustMoney("0"), schedule.MustSpec(0, 10, 3), "valueToBill"},
			{"unconstructed spec", 7, 3, kernel.MustMoney("1"), schedule.Spec{}, "Spec must be created"},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := job.NewJob(tc.userID, tc.salePoint, tc.value, tc.spec, false, created)

				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.expected)
			})
		}
	})
}

func TestJob_ZeroValueIsNotConstructed(t *testing.T) {
	var j *job.Job
	require.ErrorIs(t, j.Validate(), job.ErrJobIsNotConstructed)
	require.ErrorIs(t, (&job.Job{}).Validate(), job.ErrJobIsNotConstructed)
}

func TestJob_AssignID(t *testing.T) {
	j := newPendingJob(t)

	require.ErrorIs(t, j.AssignID(0), errs.ErrValueIsInvalid)
	require.NoError(t, j.AssignID(12))
	assert.Equal(t, int64(12), j.ID())
	require.ErrorIs(t, j.AssignID(13), job.ErrIDAlreadyAssigned)
}

func TestJob_ClaimAndComplete(t *testing.T) {
	j := newPendingJob(t)
	token := kernel.NewUUID()
	at := created.Add(time.Hour)

	require.NoError(t, j.Claim(token, false, at))
	assert.Equal(t, job.InProgress, j.Status())
	require.NotNil(t, j.ClaimToken())
	assert.True(t, token.IsEqual(*j.ClaimToken()))
	assert.Equal(t, at, *j.ClaimedAt())
	assert.Equal(t, at, j.UpdatedAt())

	require.Error(t, j.Claim(kernel.NewUUID(), false, at), "second claim must be rejected")

	auth := job.Authorization{Code: "74123456789012", VoucherNumber: 18}
	require.ErrorIs(t, j.Complete(kernel.NewUUID(), auth, at), job.ErrClaimTokenMismatch)

	done := at.Add(time.Minute)
	require.NoError(t, j.Complete(token, auth, done))
	assert.Equal(t, job.Completed, j.Status())
	assert.Equal(t, "74123456789012", j.Authorization().Code)
	assert.Nil(t, j.ClaimToken())
	assert.Equal(t, done, j.UpdatedAt())
}

func TestJob_CompleteRequiresAuthorizationCode(t *testing.T) {
	j := newPendingJob(t)
	token := kernel.NewUUID()
	require.NoError(t, j.Claim(token, false, created))

	err := j.Complete(token, job.Authorization{}, created)

	require.ErrorIs(t, err, errs.ErrValueIsRequired)
	assert.Equal(t, job.InProgress, j.Status())
}

func TestJob_FailAndRetry(t *testing.T) {
	j := newPendingJob(t)
	token := kernel.NewUUID()
	require.NoError(t, j.Claim(token, false, created))

	require.NoError(t, j.Fail(token, "invoicing service unavailable", created))
	assert.Equal(t, job.Failed, j.Status())
	assert.Equal(t, "invoicing service unavailable", j.FailureReason())

	require.Error(t, j.Claim(kernel.NewUUID(), false, created), "failed jobs need a retry claim")

	retryToken := kernel.NewUUID()
	require.NoError(t, j.Claim(retryToken, true, created))
	require.NoError(t, j.Complete(retryToken, job.Authorization{Code: "1"}, created))
	assert.Equal(t, job.Completed, j.Status())
	assert.Empty(t, j.FailureReason())
}

func TestJob_ForceFail(t *testing.T) {
	t.Run("pending job", func(t *testing.T) {
		j := newPendingJob(t)

		require.NoError(t, j.ForceFail("paused by operator", created))
		assert.Equal(t, job.Failed, j.Status())
	})

	t.Run("completed job is untouched", func(t *testing.T) {
		j := newPendingJob(t)
		token := kernel.NewUUID()
		require.NoError(t, j.Claim(token, false, created))
		require.NoError(t, j.Complete(token, job.Authorization{Code: "1"}, created))

		require.Error(t, j.ForceFail("paused by operator", created))
		assert.Equal(t, job.Completed, j.Status())
	})

	t.Run("failed job keeps its reason and timestamp", func(t *testing.T) {
		j := newPendingJob(t)
		failedAt := created.Add(time.Hour)
		require.NoError(t, j.ForceFail("paused by operator", failedAt))

		require.Error(t, j.ForceFail("paused again", failedAt.Add(time.Hour)))
		assert.Equal(t, job.Failed, j.Status())
		assert.Equal(t, "paused by operator", j.FailureReason())
		assert.True(t, j.UpdatedAt().Equal(failedAt))
	})
}

func TestJob_FailTruncatesLongReason(t *testing.T) {
	j := newPendingJob(t)

	reason := strings.Repeat("ñ", job.MaxFailureReasonLength+10)
	require.NoError(t, j.ForceFail(reason, created))

	assert.Equal(t, job.MaxFailureReasonLength, utf8.RuneCountInString(j.FailureReason()))
	assert.True(t, utf8.ValidString(j.FailureReason()))
}

func TestRestoreJob(t *testing.T) {
	base := job.RestoreJobParams{
		ID:        4,
		Status:    job.Pending,
		Spec:      schedule.MustSpec(0, 10, 3),
		UserID:    7,
		SalePoint: 3,
		Value:     kernel.MustMoney("100"),
		CreatedAt: created,
		UpdatedAt: created,
	}

	t.Run("valid", func(t *testing.T) {
		j, err := job.RestoreJob(base)

		require.NoError(t, err)
		assert.Equal(t, int64(4), j.ID())
	})

	t.Run("in progress requires a claim token", func(t *testing.T) {
		p := base
		p.Status = job.InProgress

		_, err := job.RestoreJob(p)
		require.Error(t, err)

		token := kernel.NewUUID()
		p.ClaimToken = &token
		_, err = job.RestoreJob(p)
		require.NoError(t, err)
	})

	t.Run("unknown status", func(t *testing.T) {
		p := base
		p.Status = job.Unknown

		_, err := job.RestoreJob(p)
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})
}
