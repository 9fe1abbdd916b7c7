package tender

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/ignatzorin/tender-portal/internal/domain/entity"
	"github.com/ignatzorin/tender-portal/internal/domain/repository"
	"github.com/ignatzorin/tender-portal/internal/domain/valueobject"
	"github.com/ignatzorin/tender-portal/internal/notification"
)

type GetTenderUseCase struct {
	tenderRepo     repository.TenderRepository
	submissionRepo repository.SubmissionRepository
}

func NewGetTenderUseCase(tenderRepo repository.TenderRepository, submissionRepo repository.SubmissionRepository) *GetTenderUseCase {
	return &GetTenderUseCase{tenderRepo: tenderRepo, submissionRepo: submissionRepo}
}

func (uc *GetTenderUseCase) Execute(ctx context.Context, tenderID uuid.UUID) (*entity.Tender, error) {
	tender, err := uc.tenderRepo.FindByID(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	count, err := uc.submissionRepo.CountByTender(ctx, tender.ID)
	if err != nil {
		return nil, err
	}
	tender.SubmissionsCount = count
	return tender, nil
}

type ListTendersUseCase struct {
	tenderRepo     repository.TenderRepository
	submissionRepo repository.SubmissionRepository
}

func NewListTendersUseCase(tenderRepo repository.TenderRepository, submissionRepo repository.SubmissionRepository) *ListTendersUseCase {
	return &ListTendersUseCase{tenderRepo: tenderRepo, submissionRepo: submissionRepo}
}

// Execute пересчитывает submissionsCount по заявкам: хранимому значению не доверяем.
func (uc *ListTendersUseCase) Execute(ctx context.Context, filter repository.TenderFilter) ([]*entity.Tender, error) {
	tenders, err := uc.tenderRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	subs, err := uc.submissionRepo.List(ctx, repository.SubmissionFilter{})
	if err != nil {
		return nil, err
	}
	counts := make(map[uuid.UUID]int, len(tenders))
	for _, sub := range notification.Deduplicate(subs) {
		counts[sub.TenderID]++
	}

	seen := make(map[uuid.UUID]struct{}, len(tenders))
	out := make([]*entity.Tender, 0, len(tenders))
	for _, t := range tenders {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		t.SubmissionsCount = counts[t.ID]
		out = append(out, t)
	}
	return out, nil
}

type TenderStats struct {
	TenderID         uuid.UUID                            `json:"tender_id"`
	Total            int                                  `json:"total"`
	ByStatus         map[valueobject.SubmissionStatus]int `json:"by_status"`
	Evaluated        int                                  `json:"evaluated"`
	AverageScore     *float64                             `json:"average_score,omitempty"`
	TopScore         *float64                             `json:"top_score,omitempty"`
	MissingDocuments int                                  `json:"missing_documents"`
	WithoutEmail     int                                  `json:"without_email"`
}

type TenderStatsUseCase struct {
	tenderRepo     repository.TenderRepository
	submissionRepo repository.SubmissionRepository
}

func NewTenderStatsUseCase(tenderRepo repository.TenderRepository, submissionRepo repository.SubmissionRepository) *TenderStatsUseCase {
	return &TenderStatsUseCase{tenderRepo: tenderRepo, submissionRepo: submissionRepo}
}

// Execute считает статистику по схлопнутому набору заявок тендера.
func (uc *TenderStatsUseCase) Execute(ctx context.Context, tenderID uuid.UUID) (*TenderStats, error) {
	if _, err := uc.tenderRepo.FindByID(ctx, tenderID); err != nil {
		return nil, err
	}

	subs, err := uc.submissionRepo.List(ctx, repository.SubmissionFilter{TenderID: &tenderID})
	if err != nil {
		return nil, err
	}

	stats := &TenderStats{
		TenderID: tenderID,
		ByStatus: make(map[valueobject.SubmissionStatus]int),
	}
	var scores []float64
	for _, sub := range notification.Deduplicate(subs) {
		stats.Total++

		status, err := valueobject.NormalizeSubmissionStatus(string(sub.Status))
		if err == nil {
			stats.ByStatus[status]++
		}
		if sub.Score != nil {
			scores = append(scores, *sub.Score)
		}
		if sub.Email() == "" {
			stats.WithoutEmail++
		}
		for _, doc := range sub.Documents {
			if doc.Status.NeedsResubmission() {
				stats.MissingDocuments++
				break
			}
		}
	}

	stats.Evaluated = len(scores)
	if len(scores) > 0 {
		sort.Float64s(scores)
		var sum float64
		for _, s := range scores {
			sum += s
		}
		avg := sum / float64(len(scores))
		top := scores[len(scores)-1]
		stats.AverageScore = &avg
		stats.TopScore = &top
	}
	return stats, nil
}
