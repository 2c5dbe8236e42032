package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/godilite/service-audit/internal/events"
	"github.com/godilite/service-audit/internal/repository/models"
	"github.com/godilite/service-audit/internal/scoring"
	"github.com/godilite/service-audit/internal/service/mocks"
)

var (
	admin   = Actor{UserID: 1, Role: models.RoleAdministrator, DepartmentID: 10}
	manager = Actor{UserID: 2, Role: models.RoleManager, DepartmentID: 10}
	analyst = Actor{UserID: 7, Role: models.RoleAnalyst, DepartmentID: 10}
)

type recordingPublisher struct {
	events []events.AlertEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.AlertEvent) error {
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func criteriaWithPoints(k int) scoring.CriterionSet {
	var set scoring.CriterionSet
	for i := range set {
		if i < k {
			set[i].Met = true
		} else {
			set[i].ErrorDescription = "falhou"
		}
	}
	return set
}

func analystUser() models.User {
	return models.User{ID: 7, Username: "ana", FirstName: "Ana", LastName: "Souza", Role: models.RoleAnalyst, DepartmentID: 10, Active: true}
}

func storedAudit(id int64, points int) models.AuditRecord {
	return models.AuditRecord{
		Audit: models.Audit{
			ID:             id,
			DepartmentID:   10,
			AnalystID:      7,
			AuditorID:      2,
			ServiceDate:    "2025-10-01",
			ConversationID: "conv-1",
			ServiceType:    scoring.ServiceCustomer,
			Criteria:       criteriaWithPoints(points),
			CreatedAt:      time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC),
			UpdatedAt:      time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC),
		},
		Points:  points,
		Analyst: analystUser(),
		Auditor: models.User{ID: 2, Username: "carla", FirstName: "Carla", Role: models.RoleManager, DepartmentID: 10},
	}
}

func TestNewAuditService(t *testing.T) {
	t.Run("valid parameters", func(t *testing.T) {
		mockRepo := &mocks.MockAuditRepository{}
		logger := zap.NewNop()

		svc := NewAuditService(mockRepo, nil, logger)

		assert.NotNil(t, svc)
		assert.Equal(t, mockRepo, svc.storage)
		assert.Equal(t, events.Nop{}, svc.publisher)
		assert.Equal(t, logger, svc.logger)
	})

	t.Run("nil storage panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewAuditService(nil, nil, zap.NewNop())
		})
	})

	t.Run("nil logger gets default", func(t *testing.T) {
		svc := NewAuditService(&mocks.MockAuditRepository{}, nil, nil)
		assert.NotNil(t, svc.logger)
	})
}

func TestCreateAudit(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the audit and confirms the score", func(t *testing.T) {
		var stored models.Audit
		pub := &recordingPublisher{}
		mockRepo := &mocks.MockAuditRepository{
			GetUserFunc: func(_ context.Context, id int64) (models.User, error) {
				assert.Equal(t, int64(7), id)
				return analystUser(), nil
			},
			CreateAuditFunc: func(_ context.Context, a models.Audit) (int64, error) {
				stored = a
				return 55, nil
			},
		}
		svc := NewAuditService(mockRepo, pub, zap.NewNop())

		in := NewAuditInput(7, "2025-10-01", " <b>conv-9</b> ", scoring.ServiceFranchisee, criteriaWithPoints(8))
		got, err := svc.CreateAudit(ctx, manager, in)

		require.NoError(t, err)
		assert.Equal(t, int64(55), got.ID)
		assert.Equal(t, 8, got.Points)
		assert.Equal(t, 8.9, got.Grade)
		assert.Equal(t, scoring.Good, got.Classification)
		assert.False(t, got.RequiresAction)
		assert.Empty(t, pub.events)

		assert.Equal(t, int64(10), stored.DepartmentID)
		assert.Equal(t, int64(2), stored.AuditorID)
		assert.Equal(t, "conv-9", stored.ConversationID)
		assert.Equal(t, scoring.ServiceFranchisee, stored.ServiceType)
	})

	t.Run("low score publishes an alert", func(t *testing.T) {
		pub := &recordingPublisher{err: errors.New("broker down")}
		mockRepo := &mocks.MockAuditRepository{
			GetUserFunc:     func(context.Context, int64) (models.User, error) { return analystUser(), nil },
			CreateAuditFunc: func(context.Context, models.Audit) (int64, error) { return 56, nil },
		}
		svc := NewAuditService(mockRepo, pub, zap.NewNop())

		got, err := svc.CreateAudit(ctx, admin, NewAuditInput(7, "2025-10-01", "c", scoring.ServiceCustomer, criteriaWithPoints(6)))

		require.NoError(t, err, "publisher failures never fail the write")
		assert.True(t, got.RequiresAction)
		require.Len(t, pub.events, 1)
		assert.Equal(t, events.AlertRequiresAction, pub.events[0].Type)
		assert.Equal(t, int64(56), pub.events[0].AuditID)
		assert.Equal(t, "Ana Souza", pub.events[0].AnalystName)
		assert.Equal(t, 67, pub.events[0].Percent)
	})

	t.Run("inactive configuration never alerts", func(t *testing.T) {
		pub := &recordingPublisher{}
		mockRepo := &mocks.MockAuditRepository{
			GetUserFunc:     func(context.Context, int64) (models.User, error) { return analystUser(), nil },
			CreateAuditFunc: func(context.Context, models.Audit) (int64, error) { return 57, nil },
			GetConfigurationFunc: func(context.Context, int64) (models.Configuration, error) {
				return models.Configuration{MinimumAcceptablePercent: 90, Active: false}, nil
			},
		}
		svc := NewAuditService(mockRepo, pub, zap.NewNop())

		got, err := svc.CreateAudit(ctx, admin, NewAuditInput(7, "2025-10-01", "c", scoring.ServiceCustomer, criteriaWithPoints(0)))

		require.NoError(t, err)
		assert.False(t, got.RequiresAction)
		assert.Empty(t, pub.events)
	})

	t.Run("analysts cannot create", func(t *testing.T) {
		svc := NewAuditService(&mocks.MockAuditRepository{}, nil, zap.NewNop())
		_, err := svc.CreateAudit(ctx, analyst, NewAuditInput(7, "2025-10-01", "c", scoring.ServiceCustomer, scoring.AllMet()))
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("missing explanation is rejected before storage", func(t *testing.T) {
		set := scoring.AllMet()
		set[scoring.Respectful].Met = false
		svc := NewAuditService(&mocks.MockAuditRepository{}, nil, zap.NewNop())

		_, err := svc.CreateAudit(ctx, manager, NewAuditInput(7, "2025-10-01", "c", scoring.ServiceCustomer, set))

		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Contains(t, err.Error(), "atendimento_respeitoso")
	})

	t.Run("required fields", func(t *testing.T) {
		svc := NewAuditService(&mocks.MockAuditRepository{}, nil, zap.NewNop())
		in := NewAuditInput(7, "01/10/2025", "", "parceiro", scoring.AllMet())
		in.Criteria[scoring.CorrectProcedure].Met = nil

		_, err := svc.CreateAudit(ctx, manager, in)

		require.ErrorIs(t, err, ErrInvalidInput)
		msg := err.Error()
		assert.Contains(t, msg, "data_atendimento")
		assert.Contains(t, msg, "id_conversa")
		assert.Contains(t, msg, "parceiro")
		assert.Contains(t, msg, "procedimento_correto")
	})

	t.Run("unknown analyst", func(t *testing.T) {
		mockRepo := &mocks.MockAuditRepository{
			GetUserFunc: func(context.Context, int64) (models.User, error) { return models.User{}, models.ErrNotFound },
		}
		svc := NewAuditService(mockRepo, nil, zap.NewNop())

		_, err := svc.CreateAudit(ctx, manager, NewAuditInput(99, "2025-10-01", "c", scoring.ServiceCustomer, scoring.AllMet()))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("analyst of another department", func(t *testing.T) {
		mockRepo := &mocks.MockAuditRepository{
			GetUserFunc: func(context.Context, int64) (models.User, error) {
				u := analystUser()
				u.DepartmentID = 99
				return u, nil
			},
		}
		svc := NewAuditService(mockRepo, nil, zap.NewNop())

		_, err := svc.CreateAudit(ctx, manager, NewAuditInput(7, "2025-10-01", "c", scoring.ServiceCustomer, scoring.AllMet()))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("storage failure", func(t *testing.T) {
		mockRepo := &mocks.MockAuditRepository{
			GetUserFunc:     func(context.Context, int64) (models.User, error) { return analystUser(), nil },
			CreateAuditFunc: func(context.Context, models.Audit) (int64, error) { return 0, errors.New("disk full") },
		}
		svc := NewAuditService(mockRepo, nil, zap.NewNop())

		_, err := svc.CreateAudit(ctx, manager, NewAuditInput(7, "2025-10-01", "c", scoring.ServiceCustomer, scoring.AllMet()))
		assert.ErrorIs(t, err, ErrStorageFailure)
		assert.Contains(t, err.Error(), "disk full")
	})
}

func TestUpdateAudit(t *testing.T) {
	ctx := context.Background()

	t.Run("partial patch is merged and revalidated", func(t *testing.T) {
		var saved models.Audit
		mockRepo := &mocks.MockAuditRepository{
			GetAuditFunc: func(context.Context, int64) (models.AuditRecord, error) { return storedAudit(3, 9), nil },
			UpdateAuditFunc: func(_ context.Context, a models.Audit) error {
				saved = a
				return nil
			},
		}
		svc := NewAuditService(mockRepo, nil, zap.NewNop())

		met := false
		desc := "Não se apresentou"
		var in AuditInput
		in.Criteria[scoring.Presentation] = CriterionInput{Met: &met, ErrorDescription: &desc}

		got, err := svc.UpdateAudit(ctx, manager, 3, in)

		require.NoError(t, err)
		assert.Equal(t, 8, got.Points)
		assert.Equal(t, "conv-1", saved.ConversationID, "absent fields are kept")
		assert.Equal(t, desc, saved.Criteria[scoring.Presentation].ErrorDescription)
	})

	t.Run("unmet without explanation on the merged audit", func(t *testing.T) {
		mockRepo := &mocks.MockAuditRepository{
			GetAuditFunc: func(context.Context, int64) (models.AuditRecord, error) { return storedAudit(3, 9), nil },
		}
		svc := NewAuditService(mockRepo, nil, zap.NewNop())

		met := false
		var in AuditInput
		in.Criteria[scoring.CorrectLanguage].Met = &met

		_, err := svc.UpdateAudit(ctx, manager, 3, in)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("audit of another department", func(t *testing.T) {
		mockRepo := &mocks.MockAuditRepository{
			GetAuditFunc: func(context.Context, int64) (models.AuditRecord, error) {
				rec := storedAudit(3, 9)
				rec.DepartmentID = 11
				return rec, nil
			},
		}
		svc := NewAuditService(mockRepo, nil, zap.NewNop())

		_, err := svc.UpdateAudit(ctx, manager, 3, AuditInput{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("missing audit", func(t *testing.T) {
		mockRepo := &mocks.MockAuditRepository{
			GetAuditFunc: func(context.Context, int64) (models.AuditRecord, error) {
				return models.AuditRecord{}, models.ErrNotFound
			},
		}
		svc := NewAuditService(mockRepo, nil, zap.NewNop())

		_, err := svc.UpdateAudit(ctx, admin, 3, AuditInput{})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDeleteAudit(t *testing.T) {
	ctx := context.Background()

	deleted := int64(0)
	mockRepo := &mocks.MockAuditRepository{
		GetAuditFunc: func(_ context.Context, id int64) (models.AuditRecord, error) { return storedAudit(id, 9), nil },
		DeleteAuditFunc: func(_ context.Context, id int64) error {
			deleted = id
			return nil
		},
	}
	svc := NewAuditService(mockRepo, nil, zap.NewNop())

	require.NoError(t, svc.DeleteAudit(ctx, manager, 4))
	assert.Equal(t, int64(4), deleted)
	assert.ErrorIs(t, svc.DeleteAudit(ctx, analyst, 4), ErrForbidden)
}

func TestGetAudit(t *testing.T) {
	ctx := context.Background()
	mockRepo := &mocks.MockAuditRepository{
		GetAuditFunc: func(_ context.Context, id int64) (models.AuditRecord, error) { return storedAudit(id, 6), nil },
	}
	svc := NewAuditService(mockRepo, nil, zap.NewNop())

	t.Run("manager sees the auditor", func(t *testing.T) {
		got, err := svc.GetAudit(ctx, manager, 8)
		require.NoError(t, err)

		assert.Equal(t, int64(8), got.ID)
		assert.Equal(t, "Cliente", got.ServiceType)
		require.NotNil(t, got.Auditor)
		assert.Equal(t, "carla", got.Auditor.Username)
		assert.True(t, got.RequiresAction)
		assert.True(t, got.CanEdit)
		assert.Equal(t, criteriaWithPoints(6), scoring.CriterionSet(got.Criteria))
	})

	t.Run("analyst reads own audit without auditor", func(t *testing.T) {
		got, err := svc.GetAudit(ctx, analyst, 8)
		require.NoError(t, err)
		assert.Nil(t, got.Auditor)
		assert.False(t, got.CanDelete)
	})

	t.Run("analyst cannot read others", func(t *testing.T) {
		other := Actor{UserID: 8, Role: models.RoleAnalyst, DepartmentID: 10}
		_, err := svc.GetAudit(ctx, other, 8)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := svc.GetAudit(ctx, Actor{UserID: 1, Role: "visitante", DepartmentID: 10}, 8)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestListAudits(t *testing.T) {
	ctx := context.Background()

	t.Run("translates filters and paginates", func(t *testing.T) {
		var got models.AuditFilter
		mockRepo := &mocks.MockAuditRepository{
			ListAuditsFunc: func(_ context.Context, f models.AuditFilter) ([]models.AuditRecord, int, error) {
				got = f
				return []models.AuditRecord{storedAudit(1, 7)}, 41, nil
			},
		}
		svc := NewAuditService(mockRepo, nil, zap.NewNop())

		res, err := svc.ListAudits(ctx, manager, ListQuery{
			AnalystID:      7,
			DateFrom:       "2025-10-01",
			DateTo:         "2025-10-31",
			ServiceType:    "cliente",
			Classification: "bom",
			OnlyAlerts:     true,
			Page:           3,
			PerPage:        500,
		})

		require.NoError(t, err)
		assert.Equal(t, int64(10), got.DepartmentID)
		assert.Equal(t, int64(7), got.AnalystID)
		assert.Equal(t, &models.PointsRange{Lo: 7, Hi: 8}, got.Points)
		require.NotNil(t, got.BelowPoints)
		assert.Equal(t, 7, *got.BelowPoints)
		assert.Equal(t, 100, got.Limit)
		assert.Equal(t, 200, got.Offset)

		assert.Equal(t, 41, res.Total)
		assert.Equal(t, 1, res.TotalPages)
		assert.Equal(t, 100, res.PerPage)
		require.Len(t, res.Audits, 1)
		assert.Equal(t, scoring.Good, res.Audits[0].Classification)
	})

	t.Run("defaults and analyst scope", func(t *testing.T) {
		var got models.AuditFilter
		mockRepo := &mocks.MockAuditRepository{
			ListAuditsFunc: func(_ context.Context, f models.AuditFilter) ([]models.AuditRecord, int, error) {
				got = f
				return nil, 0, nil
			},
		}
		svc := NewAuditService(mockRepo, nil, zap.NewNop())

		res, err := svc.ListAudits(ctx, analyst, ListQuery{AnalystID: 99})

		require.NoError(t, err)
		assert.Equal(t, int64(7), got.AnalystID, "analysts only list their own audits")
		assert.Nil(t, got.BelowPoints)
		assert.Equal(t, 20, got.Limit)
		assert.Zero(t, got.Offset)
		assert.Equal(t, 1, res.Page)
		assert.Zero(t, res.TotalPages)
		assert.NotNil(t, res.Audits)
	})

	t.Run("invalid filters", func(t *testing.T) {
		svc := NewAuditService(&mocks.MockAuditRepository{}, nil, zap.NewNop())
		for _, q := range []ListQuery{
			{DateFrom: "2025-13-01"},
			{DateFrom: "2025-10-10", DateTo: "2025-10-01"},
			{ServiceType: "parceiro"},
			{Classification: "otimo"},
		} {
			_, err := svc.ListAudits(ctx, manager, q)
			assert.ErrorIs(t, err, ErrInvalidInput, "%+v", q)
		}
	})
}

func TestScorePreview(t *testing.T) {
	mockRepo := &mocks.MockAuditRepository{
		GetConfigurationFunc: func(context.Context, int64) (models.Configuration, error) {
			return models.Configuration{MinimumAcceptablePercent: 90, Active: true}, nil
		},
	}
	svc := NewAuditService(mockRepo, nil, zap.NewNop())

	got, err := svc.ScorePreview(context.Background(), analyst, criteriaWithPoints(8))

	require.NoError(t, err)
	assert.Equal(t, 89, got.Percent)
	assert.True(t, got.RequiresAction)
	assert.Equal(t, 90.0, got.MinimumAcceptablePercent)
}

type recordingNotifier struct {
	departments []int64
}

func (n *recordingNotifier) DepartmentChanged(_ context.Context, departmentID int64) {
	n.departments = append(n.departments, departmentID)
}

func TestChangeNotifier(t *testing.T) {
	ctx := context.Background()
	repo := func() *mocks.MockAuditRepository {
		return &mocks.MockAuditRepository{
			GetUserFunc:     func(context.Context, int64) (models.User, error) { return analystUser(), nil },
			CreateAuditFunc: func(context.Context, models.Audit) (int64, error) { return 60, nil },
			GetAuditFunc:    func(_ context.Context, id int64) (models.AuditRecord, error) { return storedAudit(id, 6), nil },
			UpdateAuditFunc: func(context.Context, models.Audit) error { return nil },
			DeleteAuditFunc: func(context.Context, int64) error { return nil },
			SaveConfigurationFunc: func(_ context.Context, c models.Configuration) (models.Configuration, error) {
				return c, nil
			},
		}
	}
	in := NewAuditInput(7, "2025-10-01", "c", scoring.ServiceCustomer, criteriaWithPoints(6))
	lower, tooHigh := 50.0, 150.0

	t.Run("every committed write notifies the department", func(t *testing.T) {
		n := &recordingNotifier{}
		svc := NewAuditService(repo(), nil, zap.NewNop(), WithChangeNotifier(n))

		_, err := svc.CreateAudit(ctx, manager, in)
		require.NoError(t, err)
		_, err = svc.UpdateAudit(ctx, manager, 60, in)
		require.NoError(t, err)
		require.NoError(t, svc.DeleteAudit(ctx, manager, 60))
		_, err = svc.UpdateConfiguration(ctx, admin, ConfigurationPatch{MinimumAcceptablePercent: &lower})
		require.NoError(t, err)

		assert.Equal(t, []int64{10, 10, 10, 10}, n.departments)
	})

	t.Run("failed writes and reads do not notify", func(t *testing.T) {
		n := &recordingNotifier{}
		failing := repo()
		failing.CreateAuditFunc = func(context.Context, models.Audit) (int64, error) { return 0, errors.New("disk full") }
		failing.DeleteAuditFunc = func(context.Context, int64) error { return models.ErrNotFound }
		svc := NewAuditService(failing, nil, zap.NewNop(), WithChangeNotifier(n))

		_, err := svc.CreateAudit(ctx, manager, in)
		require.Error(t, err)
		require.Error(t, svc.DeleteAudit(ctx, manager, 60))
		_, err = svc.UpdateConfiguration(ctx, admin, ConfigurationPatch{MinimumAcceptablePercent: &tooHigh})
		require.Error(t, err)
		_, err = svc.GetConfiguration(ctx, admin)
		require.NoError(t, err)

		assert.Empty(t, n.departments)
	})

	t.Run("nil notifier is ignored", func(t *testing.T) {
		svc := NewAuditService(repo(), nil, zap.NewNop(), WithChangeNotifier(nil))
		assert.Empty(t, svc.notifiers)
	})
}
