package notification_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/tender-portal/internal/domain/entity"
	"github.com/ignatzorin/tender-portal/internal/domain/valueobject"
	"github.com/ignatzorin/tender-portal/internal/notification"
	"github.com/ignatzorin/tender-portal/internal/pkg/apperror"
)

func newSubmission(id, tenderID uuid.UUID, status valueobject.SubmissionStatus, docs ...valueobject.DocumentStatus) *entity.Submission {
	sub := &entity.Submission{
		ID:          id,
		TenderID:    tenderID,
		CompanyName: "Acme Ltd",
		Status:      status,
	}
	for i, d := range docs {
		sub.Documents = append(sub.Documents, entity.Document{ID: uuid.New(), Name: string(rune('A' + i)), Status: d})
	}
	return sub
}

func TestSelector_DuplicateSubmissionsCollapse(t *testing.T) {
	t1 := uuid.New()
	s1 := uuid.New()
	subs := []*entity.Submission{
		newSubmission(s1, t1, valueobject.SubmissionStatusSubmitted),
		newSubmission(s1, t1, valueobject.SubmissionStatusSubmitted),
	}

	got, err := notification.NewSelector(nil).Select(subs, notification.Policy{Kind: notification.PolicyAll}, notification.NewTenderSet(t1))

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, s1, got[0].ID)
}

func TestSelector_OrphanedSubmissionsExcluded(t *testing.T) {
	t1, t9 := uuid.New(), uuid.New()
	subs := []*entity.Submission{newSubmission(uuid.New(), t9, valueobject.SubmissionStatusSubmitted)}

	got, err := notification.NewSelector(nil).Select(subs, notification.Policy{Kind: notification.PolicyAll}, notification.NewTenderSet(t1))

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSelector_SizeEqualsDistinctIDs(t *testing.T) {
	t1 := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	var subs []*entity.Submission
	for round := 0; round < 4; round++ {
		for _, id := range ids {
			subs = append(subs, newSubmission(id, t1, valueobject.SubmissionStatusSubmitted))
		}
	}

	got, err := notification.NewSelector(nil).Select(subs, notification.Policy{Kind: notification.PolicyAll}, notification.NewTenderSet(t1))

	require.NoError(t, err)
	require.Len(t, got, len(ids))
	for i, id := range ids {
		assert.Equal(t, id, got[i].ID)
	}
}

func TestSelector_KeepsFirstOccurrence(t *testing.T) {
	t1 := uuid.New()
	id := uuid.New()
	first := newSubmission(id, t1, valueobject.SubmissionStatusSubmitted)
	first.CompanyName = "First"
	second := newSubmission(id, t1, valueobject.SubmissionStatusSubmitted)
	second.CompanyName = "Second"

	got, err := notification.NewSelector(nil).Select([]*entity.Submission{first, second}, notification.Policy{Kind: notification.PolicyAll}, notification.NewTenderSet(t1))

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "First", got[0].CompanyName)
}

func TestSelector_MissingDocumentsPolicy(t *testing.T) {
	t1 := uuid.New()
	missing := newSubmission(uuid.New(), t1, valueobject.SubmissionStatusSubmitted, valueobject.DocumentStatusApproved, valueobject.DocumentStatusMissing)
	rejected := newSubmission(uuid.New(), t1, valueobject.SubmissionStatusSubmitted, valueobject.DocumentStatusRejected)
	complete := newSubmission(uuid.New(), t1, valueobject.SubmissionStatusSubmitted, valueobject.DocumentStatusApproved, valueobject.DocumentStatusUploaded)
	noDocs := newSubmission(uuid.New(), t1, valueobject.SubmissionStatusSubmitted)

	got, err := notification.NewSelector(nil).Select(
		[]*entity.Submission{missing, rejected, complete, noDocs},
		notification.Policy{Kind: notification.PolicyMissingDocuments},
		notification.NewTenderSet(t1),
	)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, missing.ID, got[0].ID)
	assert.Equal(t, rejected.ID, got[1].ID)
}

type stubDocuments map[uuid.UUID][]valueobject.DocumentStatus

func (s stubDocuments) DocumentStatuses(sub *entity.Submission) []valueobject.DocumentStatus {
	return s[sub.ID]
}

func TestSelector_MissingDocumentsUsesProvider(t *testing.T) {
	t1 := uuid.New()
	sub := newSubmission(uuid.New(), t1, valueobject.SubmissionStatusSubmitted, valueobject.DocumentStatusApproved)
	provider := stubDocuments{sub.ID: {valueobject.DocumentStatusMissing}}

	got, err := notification.NewSelector(provider).Select(
		[]*entity.Submission{sub},
		notification.Policy{Kind: notification.PolicyMissingDocuments},
		notification.NewTenderSet(t1),
	)

	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSelector_ByStatusPolicy(t *testing.T) {
	t1 := uuid.New()
	review := newSubmission(uuid.New(), t1, valueobject.SubmissionStatusUnderReview)
	legacy := newSubmission(uuid.New(), t1, valueobject.SubmissionStatus("Under Review"))
	submitted := newSubmission(uuid.New(), t1, valueobject.SubmissionStatusSubmitted)

	policy, err := notification.ParsePolicy("by_status", "UNDER-REVIEW")
	require.NoError(t, err)

	got, err := notification.NewSelector(nil).Select([]*entity.Submission{review, legacy, submitted}, policy, notification.NewTenderSet(t1))

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, review.ID, got[0].ID)
	assert.Equal(t, legacy.ID, got[1].ID)
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		status  string
		want    notification.Policy
		wantErr bool
	}{
		{name: "пустая политика означает всех", kind: "", want: notification.Policy{Kind: notification.PolicyAll}},
		{name: "all", kind: "ALL", want: notification.Policy{Kind: notification.PolicyAll}},
		{name: "missing documents", kind: "missing_documents", want: notification.Policy{Kind: notification.PolicyMissingDocuments}},
		{name: "by status", kind: "by_status", status: "evaluated", want: notification.Policy{Kind: notification.PolicyByStatus, Status: valueobject.SubmissionStatusEvaluated}},
		{name: "by status без статуса", kind: "by_status", wantErr: true},
		{name: "неизвестная политика", kind: "everyone", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := notification.ParsePolicy(tt.kind, tt.status)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperror.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelector_InvalidPolicyAborts(t *testing.T) {
	t1 := uuid.New()
	subs := []*entity.Submission{newSubmission(uuid.New(), t1, valueobject.SubmissionStatusSubmitted)}

	_, err := notification.NewSelector(nil).Select(subs, notification.Policy{Kind: "unknown"}, notification.NewTenderSet(t1))

	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestSelector_EmptyInput(t *testing.T) {
	got, err := notification.NewSelector(nil).Select(nil, notification.Policy{Kind: notification.PolicyAll}, notification.NewTenderSet())

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeduplicateAndExcludeOrphans(t *testing.T) {
	t1, t2 := uuid.New(), uuid.New()
	a := newSubmission(uuid.New(), t1, valueobject.SubmissionStatusSubmitted)
	b := newSubmission(uuid.New(), t2, valueobject.SubmissionStatusSubmitted)

	deduped := notification.Deduplicate([]*entity.Submission{a, nil, b, a})
	assert.Equal(t, []*entity.Submission{a, b}, deduped)

	valid := notification.ExcludeOrphans(deduped, notification.NewTenderSet(t1))
	assert.Equal(t, []*entity.Submission{a}, valid)
}
