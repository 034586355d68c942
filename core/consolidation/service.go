package consolidation

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/nocheto/libretas/core"
	"github.com/nocheto/libretas/core/school"
)

var (
	// errors
	ErrNotFound = errors.New("consolidation not found")
	// ErrPeriodClosed is returned by every write against a closed period.
	ErrPeriodClosed = errors.New("period closed")
)

type (
	Repository interface {
		// Close creates or updates the period record as closed.
		Close(ctx context.Context, c Consolidation) (Consolidation, error)
		// Reopen marks the period open and clears ClosedBy and ClosedAt. Returns ErrNotFound if no record exists.
		Reopen(ctx context.Context, p Period) (Consolidation, error)
		GetConsolidation(ctx context.Context, p Period) (Consolidation, error)
		// QueryConsolidations returns every record ordered by section then bimester.
		QueryConsolidations(ctx context.Context) ([]Consolidation, error)
	}

	// Ledger is the read side of the consolidation state, used by writers to check locks.
	Ledger interface {
		IsClosed(ctx context.Context, section, bimester string) (bool, error)
	}

	Service struct {
		repo    Repository
		dir     school.Directory
		mailSvc core.EmailService
		logger  core.Logger
	}
)

var _ Ledger = (*Service)(nil)

func NewService(repo Repository, dir school.Directory, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{repo: repo, dir: dir, mailSvc: mailSvc, logger: logger}
}

// Close locks the period. Closing an already closed period records the new closer and time.
// The section, bimester and closer must exist in the directory.
func (svc *Service) Close(ctx context.Context, section, bimester, userID string) (Consolidation, error) {
	section = core.CleanString(section)
	bimester = core.CleanString(bimester)
	userID = core.CleanString(userID)
	if err := validatePeriod(section, bimester); err != nil {
		return Consolidation{}, err
	}
	if userID == "" {
		return Consolidation{}, core.NewValidationError(nil, core.FieldError{Field: "closed_by", Error: "this field is required"})
	}
	if err := svc.checkDirectory(section, bimester, userID); err != nil {
		return Consolidation{}, err
	}

	now := core.NowFunc()
	c, err := svc.repo.Close(ctx, Consolidation{
		Section:  section,
		Bimester: bimester,
		IsClosed: true,
		ClosedBy: userID,
		ClosedAt: &now,
	})
	if err != nil {
		return Consolidation{}, err
	}
	svc.logger.Info(fmt.Sprintf("period closed: section=%s bimester=%s by=%s", section, bimester, userID))
	svc.notifyPrincipals(c)
	return c, nil
}

func (svc *Service) notifyPrincipals(c Consolidation) {
	closedBy := c.ClosedBy
	if usr, err := svc.dir.User(c.ClosedBy); err == nil {
		closedBy = usr.FullName
	}
	bimName := c.Bimester
	if bim, err := svc.dir.Bimester(c.Bimester); err == nil {
		bimName = bim.Name
	}

	var msgs []*core.EmailMessage
	for _, p := range svc.dir.UsersByRole(school.KindPrincipal) {
		if p.Email == "" || p.ID == c.ClosedBy {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: p.FullName, Address: p.Email}},
			Subject:      fmt.Sprintf("Period closed: %s %s", bimName, c.Section),
			TemplateName: "period_closed",
			TemplateData: map[string]interface{}{
				"PrincipalName": p.FullName,
				"ClosedByName":  closedBy,
				"BimesterName":  bimName,
				"Section":       c.Section,
				"ClosedAt":      c.ClosedAt.Format("2006-01-02 15:04 MST"),
			},
		})
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
}

// Reopen unlocks a period. There is no precondition at this level; callers apply their own policy.
func (svc *Service) Reopen(ctx context.Context, section, bimester string) (Consolidation, error) {
	section = core.CleanString(section)
	bimester = core.CleanString(bimester)
	if err := validatePeriod(section, bimester); err != nil {
		return Consolidation{}, err
	}

	c, err := svc.repo.Reopen(ctx, Period{Section: section, Bimester: bimester})
	if err != nil {
		return Consolidation{}, err
	}
	svc.logger.Info(fmt.Sprintf("period reopened: section=%s bimester=%s", section, bimester))
	return c, nil
}

// Get returns the period record; ErrNotFound means the period is implicitly open.
func (svc *Service) Get(ctx context.Context, section, bimester string) (Consolidation, error) {
	return svc.repo.GetConsolidation(ctx, Period{Section: core.CleanString(section), Bimester: core.CleanString(bimester)})
}

// State returns the period record, or its implicit open state when there is none.
func (svc *Service) State(ctx context.Context, section, bimester string) (Consolidation, error) {
	c, err := svc.Get(ctx, section, bimester)
	if errors.Is(err, ErrNotFound) {
		return Open(Period{Section: core.CleanString(section), Bimester: core.CleanString(bimester)}), nil
	}
	return c, err
}

func (svc *Service) IsClosed(ctx context.Context, section, bimester string) (bool, error) {
	c, err := svc.Get(ctx, section, bimester)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return c.IsClosed, nil
}

func (svc *Service) ListAll(ctx context.Context) ([]Consolidation, error) {
	return svc.repo.QueryConsolidations(ctx)
}

// checkDirectory rejects periods and closers the school directory does not know.
func (svc *Service) checkDirectory(section, bimester, userID string) error {
	var flds []core.FieldError
	if len(svc.dir.StudentsBySection(section)) == 0 {
		flds = append(flds, core.FieldError{Field: "section", Error: "unknown section"})
	}
	if _, err := svc.dir.Bimester(bimester); err != nil {
		flds = append(flds, core.FieldError{Field: "bimester", Error: "unknown bimester"})
	}
	if _, err := svc.dir.User(userID); err != nil {
		flds = append(flds, core.FieldError{Field: "closed_by", Error: "unknown user"})
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

func validatePeriod(section, bimester string) error {
	var flds []core.FieldError
	if section == "" {
		flds = append(flds, core.FieldError{Field: "section", Error: "this field is required"})
	}
	if bimester == "" {
		flds = append(flds, core.FieldError{Field: "bimester", Error: "this field is required"})
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}
