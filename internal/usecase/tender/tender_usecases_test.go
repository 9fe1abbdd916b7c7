package tender_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/tender-portal/internal/domain/entity"
	"github.com/ignatzorin/tender-portal/internal/domain/repository"
	"github.com/ignatzorin/tender-portal/internal/domain/valueobject"
	"github.com/ignatzorin/tender-portal/internal/infrastructure/memory"
	"github.com/ignatzorin/tender-portal/internal/pkg/apperror"
	"github.com/ignatzorin/tender-portal/internal/usecase/tender"
)

// duplicatingSubmissionRepository отдаёт каждую заявку дважды, как join по документам.
type duplicatingSubmissionRepository struct {
	*memory.SubmissionRepository
}

func (r duplicatingSubmissionRepository) List(ctx context.Context, filter repository.SubmissionFilter) ([]*entity.Submission, error) {
	subs, err := r.SubmissionRepository.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return append(subs, subs...), nil
}

// lockstepTenderRepository отпускает первые два чтения только после того, как оба
// состоялись: оба запроса видят один и тот же исходный статус.
type lockstepTenderRepository struct {
	*memory.TenderRepository

	mu       sync.Mutex
	reads    int
	bothRead chan struct{}
}

func newLockstepTenderRepository(inner *memory.TenderRepository) *lockstepTenderRepository {
	return &lockstepTenderRepository{TenderRepository: inner, bothRead: make(chan struct{})}
}

func (r *lockstepTenderRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Tender, error) {
	tn, err := r.TenderRepository.FindByID(ctx, id)

	r.mu.Lock()
	r.reads++
	n := r.reads
	if n == 2 {
		close(r.bothRead)
	}
	r.mu.Unlock()

	if n <= 2 {
		<-r.bothRead
	}
	return tn, err
}

type transitionFunc func(ctx context.Context, tenderID uuid.UUID) (*entity.Tender, error)

func awardWith(tenders repository.TenderRepository, submissions repository.SubmissionRepository) transitionFunc {
	return tender.NewAwardTenderUseCase(tenders, submissions).Execute
}

func rejectWith(tenders repository.TenderRepository, submissions repository.SubmissionRepository) transitionFunc {
	return tender.NewRejectTenderUseCase(tenders, submissions).Execute
}

// runSimultaneously запускает оба перехода на одном открытом тендере.
func runSimultaneously(t *testing.T, f fixture, first, second func(repository.TenderRepository, repository.SubmissionRepository) transitionFunc) (uuid.UUID, [2]*entity.Tender, [2]error) {
	t.Helper()
	created := f.createTender(t)
	_, err := tender.NewPublishTenderUseCase(f.tenders, f.submissions).Execute(context.Background(), created.ID)
	require.NoError(t, err)

	repo := newLockstepTenderRepository(f.tenders)
	calls := [2]transitionFunc{first(repo, f.submissions), second(repo, f.submissions)}

	var (
		wg      sync.WaitGroup
		results [2]*entity.Tender
		errs    [2]error
	)
	for i := range calls {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = calls[i](context.Background(), created.ID)
		}(i)
	}
	wg.Wait()
	return created.ID, results, errs
}

type fixture struct {
	tenders     *memory.TenderRepository
	submissions *memory.SubmissionRepository
}

func newFixture() fixture {
	f := fixture{
		tenders:     memory.NewTenderRepository(),
		submissions: memory.NewSubmissionRepository(),
	}
	f.tenders.TrackSubmissions(f.submissions)
	return f
}

func (f fixture) createTender(t *testing.T) *entity.Tender {
	t.Helper()
	closing := time.Now().Add(48 * time.Hour)
	uc := tender.NewCreateTenderUseCase(f.tenders)
	created, err := uc.Execute(context.Background(), tender.CreateTenderInput{
		Title:       "Roof Repair Tender",
		Category:    "Construction",
		Description: "Repair of the municipal library roof",
		Budget:      120000,
		Currency:    "EUR",
		ClosingDate: &closing,
	})
	require.NoError(t, err)
	return created
}

func (f fixture) addSubmission(t *testing.T, tenderID uuid.UUID, status valueobject.SubmissionStatus, score *float64) *entity.Submission {
	t.Helper()
	email := "bidder@example.com"
	sub, err := entity.NewSubmission(tenderID, "Bidder", nil, &email, nil)
	require.NoError(t, err)
	sub.Status = status
	sub.Score = score
	require.NoError(t, f.submissions.Create(context.Background(), sub))
	return sub
}

func TestCreateTenderUseCase_Validation(t *testing.T) {
	f := newFixture()
	closing := time.Now().Add(time.Hour)
	uc := tender.NewCreateTenderUseCase(f.tenders)

	_, err := uc.Execute(context.Background(), tender.CreateTenderInput{
		Title:       "Roof",
		Category:    "Construction",
		Description: "short",
		Budget:      100,
		ClosingDate: &closing,
	})
	assert.True(t, apperror.IsValidation(err))

	_, err = uc.Execute(context.Background(), tender.CreateTenderInput{
		Title:       "Roof repair",
		Category:    "Construction",
		Description: "Repair of the municipal library roof",
		Budget:      100,
	})
	assert.True(t, apperror.IsValidation(err), "дата закрытия обязательна")

	tenders, err := f.tenders.List(context.Background(), repository.TenderFilter{})
	require.NoError(t, err)
	assert.Empty(t, tenders)
}

func TestTenderLifecycle_PublishAwardPublish(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created := f.createTender(t)
	assert.Equal(t, valueobject.TenderStatusDraft, created.Status)

	published, err := tender.NewPublishTenderUseCase(f.tenders, f.submissions).Execute(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.TenderStatusOpen, published.Status)

	awarded, err := tender.NewAwardTenderUseCase(f.tenders, f.submissions).Execute(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.TenderStatusAwarded, awarded.Status)

	_, err = tender.NewPublishTenderUseCase(f.tenders, f.submissions).Execute(ctx, created.ID)
	assert.True(t, apperror.IsIllegalTransition(err))

	stored, err := f.tenders.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.TenderStatusAwarded, stored.Status)
}

func TestAwardTenderUseCase_Idempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created := f.createTender(t)

	_, err := tender.NewPublishTenderUseCase(f.tenders, f.submissions).Execute(ctx, created.ID)
	require.NoError(t, err)

	award := tender.NewAwardTenderUseCase(f.tenders, f.submissions)
	first, err := award.Execute(ctx, created.ID)
	require.NoError(t, err)
	second, err := award.Execute(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, valueobject.TenderStatusAwarded, second.Status)
}

func TestTenderLifecycle_ClosedRejectsEverything(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created := f.createTender(t)

	_, err := tender.NewPublishTenderUseCase(f.tenders, f.submissions).Execute(ctx, created.ID)
	require.NoError(t, err)
	_, err = tender.NewCloseTenderUseCase(f.tenders, f.submissions).Execute(ctx, created.ID)
	require.NoError(t, err)

	_, err = tender.NewStartEvaluationUseCase(f.tenders, f.submissions).Execute(ctx, created.ID)
	assert.True(t, apperror.IsIllegalTransition(err))
	_, err = tender.NewAwardTenderUseCase(f.tenders, f.submissions).Execute(ctx, created.ID)
	assert.True(t, apperror.IsIllegalTransition(err))
	_, err = tender.NewCloseTenderUseCase(f.tenders, f.submissions).Execute(ctx, created.ID)
	assert.True(t, apperror.IsIllegalTransition(err))
}

func TestTenderLifecycle_ConcurrentAwardAndReject(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created := f.createTender(t)
	_, err := tender.NewPublishTenderUseCase(f.tenders, f.submissions).Execute(ctx, created.ID)
	require.NoError(t, err)

	award := tender.NewAwardTenderUseCase(f.tenders, f.submissions)
	reject := tender.NewRejectTenderUseCase(f.tenders, f.submissions)

	const attempts = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins = map[valueobject.TenderStatus]int{}
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var (
				res *entity.Tender
				err error
			)
			if i%2 == 0 {
				res, err = award.Execute(ctx, created.ID)
			} else {
				res, err = reject.Execute(ctx, created.ID)
			}
			if err != nil {
				assert.True(t, apperror.IsConflict(err) || apperror.IsIllegalTransition(err), "неожиданная ошибка: %v", err)
				return
			}
			mu.Lock()
			wins[res.Status]++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	stored, err := f.tenders.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Contains(t, []valueobject.TenderStatus{valueobject.TenderStatusAwarded, valueobject.TenderStatusRejected}, stored.Status)

	// Успешные ответы могут быть только о победившем решении.
	for status := range wins {
		assert.Equal(t, stored.Status, status)
	}
}

func TestTenderLifecycle_SimultaneousDuplicateDecision(t *testing.T) {
	tests := []struct {
		name     string
		decision func(repository.TenderRepository, repository.SubmissionRepository) transitionFunc
		want     valueobject.TenderStatus
	}{
		{name: "award twice", decision: awardWith, want: valueobject.TenderStatusAwarded},
		{name: "reject twice", decision: rejectWith, want: valueobject.TenderStatusRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			id, results, errs := runSimultaneously(t, f, tt.decision, tt.decision)

			for i := range errs {
				require.NoError(t, errs[i])
				assert.Equal(t, tt.want, results[i].Status)
			}
			stored, err := f.tenders.FindByID(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stored.Status)
		})
	}
}

func TestTenderLifecycle_SimultaneousOpposingDecision(t *testing.T) {
	f := newFixture()
	id, results, errs := runSimultaneously(t, f, awardWith, rejectWith)

	stored, err := f.tenders.FindByID(context.Background(), id)
	require.NoError(t, err)

	succeeded := 0
	for i := range errs {
		if errs[i] != nil {
			assert.ErrorIs(t, errs[i], apperror.ErrStatusChanged)
			continue
		}
		succeeded++
		assert.Equal(t, stored.Status, results[i].Status)
	}
	assert.Equal(t, 1, succeeded)
}

func TestDeleteTenderUseCase(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	referenced := f.createTender(t)
	f.addSubmission(t, referenced.ID, valueobject.SubmissionStatusSubmitted, nil)

	del := tender.NewDeleteTenderUseCase(f.tenders)

	err := del.Execute(ctx, referenced.ID, false)
	assert.True(t, apperror.IsConflict(err))
	_, err = f.tenders.FindByID(ctx, referenced.ID)
	require.NoError(t, err)

	require.NoError(t, del.Execute(ctx, referenced.ID, true))
	_, err = f.tenders.FindByID(ctx, referenced.ID)
	assert.True(t, apperror.IsNotFound(err))

	count, err := f.submissions.CountByTender(ctx, referenced.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "заявки при удалении тендера не удаляются")

	draft := f.createTender(t)
	require.NoError(t, del.Execute(ctx, draft.ID, false))

	assert.True(t, apperror.IsNotFound(del.Execute(ctx, uuid.New(), true)))
	assert.True(t, apperror.IsNotFound(del.Execute(ctx, uuid.New(), false)))

	// После удаления тендера новые заявки на него не принимаются.
	email := "late@example.com"
	late, err := entity.NewSubmission(draft.ID, "Late Bidder", nil, &email, nil)
	require.NoError(t, err)
	assert.True(t, apperror.IsNotFound(f.submissions.Create(ctx, late)))
}

func TestDeleteTenderUseCase_RacesSubmissionCreate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	del := tender.NewDeleteTenderUseCase(f.tenders)

	for i := 0; i < 50; i++ {
		target := f.createTender(t)
		email := "bidder@example.com"
		sub, err := entity.NewSubmission(target.ID, "Bidder", nil, &email, nil)
		require.NoError(t, err)

		var (
			wg                   sync.WaitGroup
			createErr, deleteErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			createErr = f.submissions.Create(ctx, sub)
		}()
		go func() {
			defer wg.Done()
			deleteErr = del.Execute(ctx, target.ID, false)
		}()
		wg.Wait()

		// Либо заявка принята и тендер уцелел, либо тендер удалён и заявка отклонена.
		if createErr == nil {
			assert.True(t, apperror.IsConflict(deleteErr), "заявка осиротела: %v", deleteErr)
			_, err := f.tenders.FindByID(ctx, target.ID)
			assert.NoError(t, err)
		} else {
			assert.True(t, apperror.IsNotFound(createErr))
			assert.NoError(t, deleteErr)
		}
	}
}

func TestListTendersUseCase_RecountsDistinctSubmissions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	first := f.createTender(t)
	second := f.createTender(t)
	f.addSubmission(t, first.ID, valueobject.SubmissionStatusSubmitted, nil)
	f.addSubmission(t, first.ID, valueobject.SubmissionStatusUnderReview, nil)
	removed := f.createTender(t)
	f.addSubmission(t, removed.ID, valueobject.SubmissionStatusSubmitted, nil)
	require.NoError(t, tender.NewDeleteTenderUseCase(f.tenders).Execute(ctx, removed.ID, true))

	uc := tender.NewListTendersUseCase(f.tenders, duplicatingSubmissionRepository{f.submissions})
	tenders, err := uc.Execute(ctx, repository.TenderFilter{})
	require.NoError(t, err)
	require.Len(t, tenders, 2)

	counts := map[uuid.UUID]int{}
	for _, tn := range tenders {
		counts[tn.ID] = tn.SubmissionsCount
	}
	assert.Equal(t, 2, counts[first.ID])
	assert.Equal(t, 0, counts[second.ID])
}

func TestTenderStatsUseCase(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created := f.createTender(t)
	low, high := 40.0, 90.0
	f.addSubmission(t, created.ID, valueobject.SubmissionStatusSubmitted, nil)
	f.addSubmission(t, created.ID, valueobject.SubmissionStatusEvaluated, &low)
	f.addSubmission(t, created.ID, valueobject.SubmissionStatusEvaluated, &high)

	uc := tender.NewTenderStatsUseCase(f.tenders, duplicatingSubmissionRepository{f.submissions})
	stats, err := uc.Execute(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[valueobject.SubmissionStatusSubmitted])
	assert.Equal(t, 2, stats.ByStatus[valueobject.SubmissionStatusEvaluated])
	assert.Equal(t, 2, stats.Evaluated)
	require.NotNil(t, stats.AverageScore)
	assert.InDelta(t, 65.0, *stats.AverageScore, 0.001)
	require.NotNil(t, stats.TopScore)
	assert.Equal(t, 90.0, *stats.TopScore)

	_, err = uc.Execute(ctx, uuid.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestCloseExpiredTendersUseCase(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	now := time.Now()

	put := func(status valueobject.TenderStatus, closing time.Time) uuid.UUID {
		tn := &entity.Tender{
			ID:          uuid.New(),
			Title:       "Tender",
			Category:    "IT",
			Description: "Some description",
			Budget:      valueobject.Money{Amount: 100, Currency: "EUR"},
			Status:      status,
			ClosingDate: closing,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		require.NoError(t, f.tenders.Create(ctx, tn))
		return tn.ID
	}

	expired := put(valueobject.TenderStatusOpen, now.Add(-time.Hour))
	stillOpen := put(valueobject.TenderStatusOpen, now.Add(time.Hour))
	draft := put(valueobject.TenderStatusDraft, now.Add(-time.Hour))

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	uc := tender.NewCloseExpiredTendersUseCase(f.tenders, log)

	closed, err := uc.Execute(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	statusOf := func(id uuid.UUID) valueobject.TenderStatus {
		tn, err := f.tenders.FindByID(ctx, id)
		require.NoError(t, err)
		return tn.Status
	}
	assert.Equal(t, valueobject.TenderStatusClosed, statusOf(expired))
	assert.Equal(t, valueobject.TenderStatusOpen, statusOf(stillOpen))
	assert.Equal(t, valueobject.TenderStatusDraft, statusOf(draft))

	closed, err = uc.Execute(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, closed)
}
