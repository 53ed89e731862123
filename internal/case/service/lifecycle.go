package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/recovahq/recova/internal/actorcontext"
	"github.com/recovahq/recova/internal/allocation"
	auditdomain "github.com/recovahq/recova/internal/audit/domain"
	"github.com/recovahq/recova/internal/case/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// activeStatuses occupy a capacity slot on the assigned agency.
var activeStatuses = map[domain.Status]bool{
	domain.StatusAllocated:  true,
	domain.StatusInProgress: true,
	domain.StatusContacted:  true,
	domain.StatusPromised:   true,
	domain.StatusEscalated:  true,
}

func (s *Service) Transition(ctx context.Context, req domain.TransitionRequest) (domain.Case, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return domain.Case{}, domain.ErrForbiddenTransition
	}

	c, err := s.loadCase(ctx, req.CaseID)
	if err != nil {
		return domain.Case{}, err
	}

	to := req.ToStatus
	if !domain.ValidStatus(to) {
		return domain.Case{}, domain.ErrInvalidStatus
	}
	if c.IsTerminal() {
		s.metrics.IncTransitionRejected("terminal_case")
		return domain.Case{}, domain.ErrTerminalCase
	}
	if !domain.TransitionDefined(c.Status, to) {
		s.metrics.IncTransitionRejected("invalid_transition")
		return domain.Case{}, domain.ErrInvalidTransition
	}

	isOwner := actor.Role == actorcontext.RoleDCAUser && actor.AgencyID != 0 && actor.AgencyID == c.AssignedDCAID
	if !domain.CanTransition(actor.Role, c.Status, to, isOwner) {
		s.metrics.IncTransitionRejected("forbidden")
		return domain.Case{}, domain.ErrForbiddenTransition
	}

	proofType := strings.TrimSpace(req.ProofType)
	proofReference := strings.TrimSpace(req.ProofReference)
	if domain.RequiresProof(to) && (proofType == "" || proofReference == "") {
		s.metrics.IncTransitionRejected("proof_required")
		return domain.Case{}, domain.ErrProofRequired
	}
	// Recorded evidence is immutable: a second attempt to set different
	// proof values is rejected rather than silently overwriting.
	if c.HasProof() && (proofType != "" || proofReference != "") {
		if proofType != c.ProofType || proofReference != c.ProofReference {
			return domain.Case{}, domain.ErrProofAlreadySet
		}
	}

	from := c.Status
	expectedVersion := c.Version

	updated := *c
	updated.Status = to
	if remarks := strings.TrimSpace(req.Remarks); remarks != "" {
		updated.Remarks = remarks
	}
	if proofType != "" && !c.HasProof() {
		updated.ProofType = proofType
		updated.ProofReference = proofReference
	}

	releasedAgency := snowflake.ID(0)
	if activeStatuses[from] && !activeStatuses[to] && c.AssignedDCAID != 0 {
		releasedAgency = c.AssignedDCAID
	}
	if to == domain.StatusReturned {
		updated.AssignedDCAID = 0
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateCAS(ctx, tx, &updated, expectedVersion); err != nil {
			return err
		}
		if releasedAgency != 0 {
			if err := s.allocator.Release(ctx, tx, releasedAgency); err != nil {
				return err
			}
		}
		metadata := map[string]any{
			"from": string(from),
			"to":   string(to),
		}
		if updated.ProofType != "" && c.ProofType == "" {
			metadata["proof_type"] = updated.ProofType
			metadata["proof_reference"] = updated.ProofReference
		}
		if releasedAgency != 0 {
			metadata["released_agency_id"] = releasedAgency.String()
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			EnterpriseID: c.EnterpriseID,
			Action:       auditdomain.ActionCaseTransition,
			TargetType:   auditdomain.TargetTypeCase,
			TargetID:     c.ID.String(),
			Metadata:     metadata,
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.metrics.IncTransitionRejected("conflict")
		}
		return domain.Case{}, err
	}

	s.metrics.IncTransition(string(from), string(to))
	if to == domain.StatusEscalated {
		s.notifier.CaseEscalated(ctx, updated.ID)
	}
	return updated, nil
}

// Reassign moves a case to a different agency. The release of the old
// agency's slot and the claim on the new one commit as a single transaction
// so a failure mid-way can never double- or zero-count either side.
func (s *Service) Reassign(ctx context.Context, id string) (domain.Case, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Case{}, err
	}

	c, err := s.loadCase(ctx, id)
	if err != nil {
		return domain.Case{}, err
	}
	if c.IsTerminal() {
		return domain.Case{}, domain.ErrTerminalCase
	}
	if c.AssignedDCAID == 0 {
		// nothing to swap; retry the initial allocation instead
		return domain.Case{}, domain.ErrInvalidTransition
	}

	from := c.Status
	previous := c.AssignedDCAID
	expectedVersion := c.Version

	updated := *c
	updated.Status = domain.StatusAllocated

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		agency, allocErr := s.allocator.Allocate(ctx, tx, allocation.Request{
			EnterpriseID: c.EnterpriseID,
			DebtType:     c.DebtType,
			Exclude:      previous,
		})
		if allocErr != nil {
			return allocErr
		}
		updated.AssignedDCAID = agency.ID

		if err := s.repo.UpdateCAS(ctx, tx, &updated, expectedVersion); err != nil {
			return err
		}
		if err := s.allocator.Release(ctx, tx, previous); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			EnterpriseID: c.EnterpriseID,
			Action:       auditdomain.ActionCaseReassign,
			TargetType:   auditdomain.TargetTypeCase,
			TargetID:     c.ID.String(),
			Metadata: map[string]any{
				"from":             string(from),
				"to":               string(domain.StatusAllocated),
				"previous_dca_id":  previous.String(),
				"assigned_dca_id":  updated.AssignedDCAID.String(),
			},
		})
	})
	if err != nil {
		if errors.Is(err, allocation.ErrNoEligibleAgency) {
			s.metrics.IncAllocationFailure()
		}
		return domain.Case{}, err
	}

	s.metrics.IncAllocation(updated.AssignedDCAID.String())
	s.notifier.CaseAllocated(ctx, updated.ID, updated.AssignedDCAID)
	return updated, nil
}

// RetryAllocation re-runs allocation for a case still sitting unallocated.
func (s *Service) RetryAllocation(ctx context.Context, id string) (domain.Case, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Case{}, err
	}

	c, err := s.loadCase(ctx, id)
	if err != nil {
		return domain.Case{}, err
	}
	if c.Status != domain.StatusPending && c.Status != domain.StatusReturned {
		return domain.Case{}, domain.ErrAlreadyAllocated
	}

	from := c.Status
	expectedVersion := c.Version
	updated := *c
	updated.Status = domain.StatusAllocated

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		agency, allocErr := s.allocator.Allocate(ctx, tx, allocation.Request{
			EnterpriseID: c.EnterpriseID,
			DebtType:     c.DebtType,
		})
		if allocErr != nil {
			return allocErr
		}
		updated.AssignedDCAID = agency.ID

		if err := s.repo.UpdateCAS(ctx, tx, &updated, expectedVersion); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			EnterpriseID: c.EnterpriseID,
			Action:       auditdomain.ActionCaseAllocate,
			TargetType:   auditdomain.TargetTypeCase,
			TargetID:     c.ID.String(),
			Metadata: map[string]any{
				"from":            string(from),
				"to":              string(domain.StatusAllocated),
				"assigned_dca_id": updated.AssignedDCAID.String(),
			},
		})
	})
	if err != nil {
		if errors.Is(err, allocation.ErrNoEligibleAgency) {
			s.metrics.IncAllocationFailure()
		}
		return domain.Case{}, err
	}

	s.metrics.IncAllocation(updated.AssignedDCAID.String())
	s.notifier.CaseAllocated(ctx, updated.ID, updated.AssignedDCAID)
	return updated, nil
}

// Reopen moves a terminal case back into work. When the previous agency can
// still take it the slot is reclaimed, otherwise the case falls back to
// pending for reallocation. Recorded proof stays untouched.
func (s *Service) Reopen(ctx context.Context, id string) (domain.Case, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Case{}, err
	}

	c, err := s.loadCase(ctx, id)
	if err != nil {
		return domain.Case{}, err
	}
	if !c.IsTerminal() {
		return domain.Case{}, domain.ErrNotTerminal
	}

	from := c.Status
	expectedVersion := c.Version
	updated := *c

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated.Status = domain.StatusPending
		updated.AssignedDCAID = 0
		if c.AssignedDCAID != 0 {
			claimed, err := s.allocator.Reclaim(ctx, tx, c.AssignedDCAID)
			if err != nil {
				return err
			}
			if claimed {
				updated.Status = domain.StatusInProgress
				updated.AssignedDCAID = c.AssignedDCAID
			}
		}

		if err := s.repo.UpdateCAS(ctx, tx, &updated, expectedVersion); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			EnterpriseID: c.EnterpriseID,
			Action:       auditdomain.ActionCaseReopen,
			TargetType:   auditdomain.TargetTypeCase,
			TargetID:     c.ID.String(),
			Metadata: map[string]any{
				"from": string(from),
				"to":   string(updated.Status),
			},
		})
	})
	if err != nil {
		return domain.Case{}, err
	}

	s.log.Info("case reopened",
		zap.String("case_id", updated.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(updated.Status)),
	)
	return updated, nil
}

// Rescore re-runs the scoring pipeline on an open case, refreshing score,
// priority, and both SLA deadlines from the original creation time.
func (s *Service) Rescore(ctx context.Context, id string) (domain.Case, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Case{}, err
	}

	c, err := s.loadCase(ctx, id)
	if err != nil {
		return domain.Case{}, err
	}
	if c.IsTerminal() {
		return domain.Case{}, domain.ErrTerminalCase
	}

	result := s.scorer.Evaluate(c.Amount, c.DaysDelinquent, c.CreatedAt)
	expectedVersion := c.Version

	updated := *c
	updated.AIScore = result.Score
	updated.Priority = string(result.Priority)
	updated.SLAContactDeadline = result.ContactDeadline
	updated.SLADeadline = result.ResolutionDeadline

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateCAS(ctx, tx, &updated, expectedVersion); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			EnterpriseID: c.EnterpriseID,
			Action:       auditdomain.ActionCaseRescore,
			TargetType:   auditdomain.TargetTypeCase,
			TargetID:     c.ID.String(),
			Metadata: map[string]any{
				"previous_score":    c.AIScore,
				"previous_priority": c.Priority,
				"ai_score":          updated.AIScore,
				"priority":          updated.Priority,
			},
		})
	})
	if err != nil {
		return domain.Case{}, err
	}
	return updated, nil
}

func (s *Service) AddNote(ctx context.Context, req domain.AddNoteRequest) (domain.CaseNote, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return domain.CaseNote{}, domain.ErrForbiddenTransition
	}
	if actor.Role == actorcontext.RoleSuperAdmin {
		return domain.CaseNote{}, domain.ErrForbiddenTransition
	}

	body := strings.TrimSpace(req.Body)
	if body == "" {
		return domain.CaseNote{}, domain.ErrInvalidNote
	}

	c, err := s.loadCase(ctx, req.CaseID)
	if err != nil {
		return domain.CaseNote{}, err
	}
	if actor.Role == actorcontext.RoleDCAUser && actor.AgencyID != c.AssignedDCAID {
		return domain.CaseNote{}, domain.ErrForbiddenTransition
	}

	note := domain.CaseNote{
		ID:         s.genID.Generate(),
		CaseID:     c.ID,
		AuthorID:   actor.ID,
		AuthorRole: string(actor.Role),
		Body:       body,
		CreatedAt:  s.clock.Now(),
	}

	expectedVersion := c.Version
	updated := *c
	updated.Remarks = body

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertNote(ctx, tx, &note); err != nil {
			return err
		}
		if err := s.repo.UpdateCAS(ctx, tx, &updated, expectedVersion); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			EnterpriseID: c.EnterpriseID,
			Action:       auditdomain.ActionCaseNoteCreate,
			TargetType:   auditdomain.TargetTypeNote,
			TargetID:     note.ID.String(),
			Metadata: map[string]any{
				"case_id": c.ID.String(),
			},
		})
	})
	if err != nil {
		return domain.CaseNote{}, err
	}
	return note, nil
}

func (s *Service) ListNotes(ctx context.Context, caseID string) ([]domain.CaseNote, error) {
	c, err := s.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListNotes(ctx, s.db, c.ID)
	if err != nil {
		return nil, err
	}

	notes := make([]domain.CaseNote, 0, len(items))
	for _, item := range items {
		if item != nil {
			notes = append(notes, *item)
		}
	}
	return notes, nil
}

func (s *Service) loadCase(ctx context.Context, id string) (*domain.Case, error) {
	caseID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	c, err := s.repo.FindByID(ctx, s.db, caseID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	if err := s.checkReadScope(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func requireAdmin(ctx context.Context) error {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok {
		return domain.ErrForbiddenTransition
	}
	switch actor.Role {
	case actorcontext.RoleEnterpriseAdmin, actorcontext.RoleSystem:
		return nil
	default:
		return domain.ErrForbiddenTransition
	}
}
