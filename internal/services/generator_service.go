package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/plandeck/task-planner-api/internal/models"
	"github.com/plandeck/task-planner-api/internal/recurrence"
	"github.com/plandeck/task-planner-api/internal/repository"
)

// ErrPassInFlight is returned when a generation pass is requested while a
// previous one is still running. Overlapping passes could evaluate the same
// rule as due twice before either advances it, so they are rejected.
var ErrPassInFlight = errors.New("generation pass already in flight")

// TemplateOutcome classifies what happened to one template during a pass.
type TemplateOutcome string

const (
	OutcomeGenerated TemplateOutcome = "generated"
	OutcomeSkipped   TemplateOutcome = "skipped"
	OutcomeFailed    TemplateOutcome = "failed"
)

// TemplateResult records the outcome for a single template.
type TemplateResult struct {
	TemplateID uint64
	Outcome    TemplateOutcome
	InstanceID uint64
	Reason     string
	Err        error
}

// PassSummary is the inspectable result of one full generation pass.
type PassSummary struct {
	PassID    string
	Now       time.Time
	Templates int
	Generated int
	Skipped   int
	Failed    int
	Results   []TemplateResult
}

// GeneratorService materializes concrete task instances from recurring
// templates. It is the only writer of rule bookkeeping columns.
type GeneratorService struct {
	repo repository.RecurrenceRepository
	mu   sync.Mutex
}

// NewGeneratorService creates a new GeneratorService
func NewGeneratorService(repo repository.RecurrenceRepository) *GeneratorService {
	return &GeneratorService{repo: repo}
}

// RunGenerationPass sweeps every active recurring template once, creating an
// instance for each template that is due at now. Templates are processed
// independently; one template's failure is recorded in the summary and does
// not stop the pass. Only a failure of the initial template listing aborts
// the pass.
func (s *GeneratorService) RunGenerationPass(ctx context.Context, now time.Time) (*PassSummary, error) {
	if !s.mu.TryLock() {
		return nil, ErrPassInFlight
	}
	defer s.mu.Unlock()

	summary := &PassSummary{
		PassID: uuid.NewString(),
		Now:    now,
	}

	templates, err := s.repo.ListActiveTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring templates: %w", err)
	}

	summary.Templates = len(templates)
	if len(templates) == 0 {
		log.Printf("generation pass %s: no recurring templates", summary.PassID)
		return summary, nil
	}

	for _, template := range templates {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result := s.processTemplate(template, now)
		summary.Results = append(summary.Results, result)

		switch result.Outcome {
		case OutcomeGenerated:
			summary.Generated++
			log.Printf("generation pass %s: created instance %d from template %d",
				summary.PassID, result.InstanceID, result.TemplateID)
		case OutcomeSkipped:
			summary.Skipped++
		case OutcomeFailed:
			summary.Failed++
			log.Printf("generation pass %s: template %d failed: %v",
				summary.PassID, result.TemplateID, result.Err)
		}
	}

	log.Printf("generation pass %s: %d templates, %d generated, %d skipped, %d failed",
		summary.PassID, summary.Templates, summary.Generated, summary.Skipped, summary.Failed)

	return summary, nil
}

// processTemplate decides, materializes and advances bookkeeping for one
// template. Rule progress is only updated after the instance row and its tag
// links exist, so current_count/last_generated never advance without a
// materialized instance.
func (s *GeneratorService) processTemplate(template repository.RecurringTemplate, now time.Time) TemplateResult {
	result := TemplateResult{TemplateID: template.Task.ID}
	rule := template.Rule
	state := recurrence.StateOf(&rule)

	due, err := recurrence.IsGenerationDue(&rule, state, now)
	if err != nil {
		// Malformed rule data is a configuration error, not a pass failure.
		log.Printf("template %d has an invalid recurrence rule: %v", template.Task.ID, err)
		result.Outcome = OutcomeSkipped
		result.Reason = err.Error()
		return result
	}
	if !due {
		result.Outcome = OutcomeSkipped
		result.Reason = "not due"
		return result
	}

	window, err := recurrence.ComputeInstanceWindow(&template.Task, &rule, state)
	if err != nil {
		result.Outcome = OutcomeSkipped
		result.Reason = err.Error()
		return result
	}

	instance := &models.Task{
		UserID:           template.Task.UserID,
		Title:            template.Task.Title,
		Description:      template.Task.Description,
		StartDatetime:    window.Start,
		DeadlineDatetime: window.Deadline,
		Priority:         template.Task.Priority,
		Status:           models.TaskStatusPlanned,
		IsRecurring:      false,
		ParentTaskID:     &template.Task.ID,
	}

	if err := s.repo.InsertInstance(instance); err != nil {
		result.Outcome = OutcomeFailed
		result.Err = fmt.Errorf("failed to insert instance: %w", err)
		return result
	}

	tagIDs, err := s.repo.ListTagIDsForTask(template.Task.ID)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = fmt.Errorf("failed to list template tags: %w", err)
		return result
	}
	for _, tagID := range tagIDs {
		if err := s.repo.LinkTag(instance.ID, tagID); err != nil {
			result.Outcome = OutcomeFailed
			result.Err = fmt.Errorf("failed to copy tag %d: %w", tagID, err)
			return result
		}
	}

	if err := s.repo.UpdateProgress(rule.ID, rule.CurrentCount+1, now); err != nil {
		result.Outcome = OutcomeFailed
		result.Err = fmt.Errorf("failed to update rule progress: %w", err)
		return result
	}

	result.Outcome = OutcomeGenerated
	result.InstanceID = instance.ID
	return result
}
