package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmodels "stagegate/internal/job/models"
	jobstore "stagegate/internal/job/store"
	"stagegate/internal/override/service"
	"stagegate/internal/principal/models"
	principalstore "stagegate/internal/principal/store"
	id "stagegate/pkg/domain"
	auditpublisher "stagegate/pkg/platform/audit/publisher"
	auditmem "stagegate/pkg/platform/audit/store/memory"
	"stagegate/pkg/platform/tx"
	"stagegate/pkg/testutil"
)

type fixture struct {
	router     chi.Router
	principals *principalstore.InMemory
	jobs       *jobstore.InMemory
	auditStore *auditmem.InMemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	principals := principalstore.NewInMemory()
	jobs := jobstore.NewInMemory()
	auditStore := auditmem.NewInMemoryStore()
	auditor := auditpublisher.New(auditStore)

	svc := service.New(principals, jobs, auditor, tx.NewNoopRunner())
	h := New(svc, auditor, slog.New(slog.DiscardHandler))

	r := chi.NewRouter()
	h.Register(r)
	return &fixture{router: r, principals: principals, jobs: jobs, auditStore: auditStore}
}

func (f *fixture) seedTalent(t *testing.T, tier models.VerificationTier) *models.Principal {
	t.Helper()
	now := time.Now()
	p := &models.Principal{
		ID:                id.NewUserID(),
		Email:             "ines.fontes@example.com",
		Role:              models.RoleTalent,
		VerificationTier:  tier,
		ProfileCompletion: 85,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, f.principals.Create(context.Background(), p))
	return p
}

func (f *fixture) seedDirector(t *testing.T, score int) *models.Principal {
	t.Helper()
	now := time.Now()
	p := &models.Principal{
		ID:         id.NewUserID(),
		Email:      "jon.beck@example.com",
		Role:       models.RoleDirector,
		TrustScore: score,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, f.principals.Create(context.Background(), p))
	return p
}

func (f *fixture) seedJob(t *testing.T) *jobmodels.Job {
	t.Helper()
	j := &jobmodels.Job{
		ID:             id.NewJobID(),
		Title:          "Stunt double, feature film",
		OwnerID:        id.NewUserID(),
		Status:         jobmodels.StatusOpen,
		ApprovalStatus: jobmodels.ApprovalApproved,
		CreatedAt:      time.Now(),
	}
	require.NoError(t, f.jobs.Create(context.Background(), j))
	return j
}

func TestHandleTierChange(t *testing.T) {
	t.Run("promotes and returns the user envelope", func(t *testing.T) {
		f := newFixture(t)
		p := f.seedTalent(t, models.TierBasic)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/users/"+p.ID.String()+"/tier",
			map[string]string{"direction": "PROMOTE", "reason": "documents verified"})
		req, _ = testutil.WithAdmin(req)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusOK(t, rr)

		resp := testutil.UnmarshalResponse[UserEnvelope](t, rr)
		require.True(t, resp.Success)
		require.NotNil(t, resp.User)
		assert.Equal(t, p.ID.String(), resp.User.ID)
		assert.Equal(t, "COMPLETE", resp.User.VerificationTier)
	})

	t.Run("rejects an unknown direction", func(t *testing.T) {
		f := newFixture(t)
		p := f.seedTalent(t, models.TierBasic)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/users/"+p.ID.String()+"/tier",
			map[string]string{"direction": "SIDEWAYS", "reason": "whatever"})
		req, _ = testutil.WithAdmin(req)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})

	t.Run("rejects a malformed user id", func(t *testing.T) {
		f := newFixture(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/users/not-a-uuid/tier",
			map[string]string{"direction": "PROMOTE", "reason": "documents verified"})
		req, _ = testutil.WithAdmin(req)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		f := newFixture(t)
		p := f.seedTalent(t, models.TierBasic)

		req := testutil.NewRequestWithBody(t, http.MethodPost, "/users/"+p.ID.String()+"/tier", "{nope")
		req, _ = testutil.WithAdmin(req)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("tier ceiling surfaces as a conflict", func(t *testing.T) {
		f := newFixture(t)
		p := f.seedTalent(t, models.TierFeatured)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/users/"+p.ID.String()+"/tier",
			map[string]string{"direction": "PROMOTE", "reason": "push higher"})
		req, _ = testutil.WithAdmin(req)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
	})

	t.Run("missing session is unauthorized", func(t *testing.T) {
		f := newFixture(t)
		p := f.seedTalent(t, models.TierBasic)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/users/"+p.ID.String()+"/tier",
			map[string]string{"direction": "PROMOTE", "reason": "documents verified"})

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})
}

func TestHandleScoreOverride(t *testing.T) {
	t.Run("returns director trust fields", func(t *testing.T) {
		f := newFixture(t)
		p := f.seedDirector(t, 30)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/users/"+p.ID.String()+"/trust-score",
			map[string]any{"score": 85, "reason": "manual calibration"})
		req, _ = testutil.WithAdmin(req)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusOK(t, rr)

		resp := testutil.UnmarshalResponse[UserEnvelope](t, rr)
		require.NotNil(t, resp.User)
		require.NotNil(t, resp.User.TrustScore)
		assert.Equal(t, 85, *resp.User.TrustScore)
		assert.Equal(t, "VERIFIED_STUDIO", resp.User.TrustLevel)
		assert.Empty(t, resp.User.VerificationTier)
	})

	t.Run("missing score field rejected", func(t *testing.T) {
		f := newFixture(t)
		p := f.seedDirector(t, 30)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/users/"+p.ID.String()+"/trust-score",
			map[string]any{"reason": "manual calibration"})
		req, _ = testutil.WithAdmin(req)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})

	t.Run("out-of-range score rejected", func(t *testing.T) {
		f := newFixture(t)
		p := f.seedDirector(t, 30)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/users/"+p.ID.String()+"/trust-score",
			map[string]any{"score": 150, "reason": "manual calibration"})
		req, _ = testutil.WithAdmin(req)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})
}

func TestHandleFreeze(t *testing.T) {
	t.Run("freezes and reports state", func(t *testing.T) {
		f := newFixture(t)
		p := f.seedTalent(t, models.TierComplete)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/users/"+p.ID.String()+"/freeze",
			map[string]any{"frozen": true, "reason": "payment dispute"})
		req, _ = testutil.WithAdmin(req)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusOK(t, rr)

		resp := testutil.UnmarshalResponse[UserEnvelope](t, rr)
		require.NotNil(t, resp.User)
		assert.True(t, resp.User.Frozen)
	})

	t.Run("repeat freeze is a conflict", func(t *testing.T) {
		f := newFixture(t)
		p := f.seedTalent(t, models.TierComplete)

		freeze := func() *http.Request {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/users/"+p.ID.String()+"/freeze",
				map[string]any{"frozen": true, "reason": "payment dispute"})
			req, _ = testutil.WithAdmin(req)
			return req
		}
		testutil.AssertStatusOK(t, testutil.DoRequest(f.router, freeze()))
		testutil.AssertStatusAndError(t, testutil.DoRequest(f.router, freeze()), http.StatusConflict, "conflict")
	})

	t.Run("bad expiry format rejected", func(t *testing.T) {
		f := newFixture(t)
		p := f.seedTalent(t, models.TierComplete)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/users/"+p.ID.String()+"/freeze",
			map[string]any{"frozen": true, "reason": "dispute", "expiresAt": "tomorrow"})
		req, _ = testutil.WithAdmin(req)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})
}

func TestHandleRestriction(t *testing.T) {
	t.Run("apply reflects the flag in the user payload", func(t *testing.T) {
		f := newFixture(t)
		p := f.seedTalent(t, models.TierComplete)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/users/"+p.ID.String()+"/restrictions",
			map[string]string{"action": "APPLY", "restrictionType": "DISABLE_MESSAGING", "reason": "harassment reports"})
		req, _ = testutil.WithAdmin(req)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusOK(t, rr)

		resp := testutil.UnmarshalResponse[UserEnvelope](t, rr)
		require.NotNil(t, resp.User)
		assert.True(t, resp.User.MessagingDisabled)
		assert.Equal(t, "harassment reports", resp.User.RestrictionReason)
		assert.NotEmpty(t, resp.User.RestrictedBy)
	})

	t.Run("remove clears the flag", func(t *testing.T) {
		f := newFixture(t)
		p := f.seedTalent(t, models.TierComplete)

		apply := testutil.NewJSONRequest(t, http.MethodPost, "/users/"+p.ID.String()+"/restrictions",
			map[string]string{"action": "APPLY", "restrictionType": "SHADOW_LIMIT", "reason": "spam"})
		apply, _ = testutil.WithAdmin(apply)
		testutil.AssertStatusOK(t, testutil.DoRequest(f.router, apply))

		remove := testutil.NewJSONRequest(t, http.MethodPost, "/users/"+p.ID.String()+"/restrictions",
			map[string]string{"action": "REMOVE", "restrictionType": "SHADOW_LIMIT", "reason": "appeal accepted"})
		remove, _ = testutil.WithAdmin(remove)

		rr := testutil.DoRequest(f.router, remove)
		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[UserEnvelope](t, rr)
		assert.False(t, resp.User.ShadowLimited)
		assert.Empty(t, resp.User.RestrictionReason)
	})

	t.Run("expiry on remove rejected", func(t *testing.T) {
		f := newFixture(t)
		p := f.seedTalent(t, models.TierComplete)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/users/"+p.ID.String()+"/restrictions",
			map[string]string{
				"action":          "REMOVE",
				"restrictionType": "SHADOW_LIMIT",
				"reason":          "appeal",
				"expiresAt":       time.Now().Add(time.Hour).Format(time.RFC3339),
			})
		req, _ = testutil.WithAdmin(req)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})
}

func TestHandleJobAction(t *testing.T) {
	t.Run("hide returns the job envelope", func(t *testing.T) {
		f := newFixture(t)
		j := f.seedJob(t)

		req := testutil.NewJSONRequest(t, http.MethodPost, "/jobs/"+j.ID.String()+"/actions",
			map[string]string{"action": "HIDE", "reason": "reported listing"})
		req, _ = testutil.WithAdmin(req)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusOK(t, rr)

		resp := testutil.UnmarshalResponse[JobEnvelope](t, rr)
		require.True(t, resp.Success)
		require.NotNil(t, resp.Job)
		assert.Equal(t, j.ID.String(), resp.Job.ID)
		assert.True(t, resp.Job.Hidden)
		assert.Equal(t, "reported listing", resp.Job.AdminActionReason)
	})

	t.Run("malformed job id rejected", func(t *testing.T) {
		f := newFixture(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/jobs/nope/actions",
			map[string]string{"action": "HIDE", "reason": "reported"})
		req, _ = testutil.WithAdmin(req)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})

	t.Run("missing job is not found", func(t *testing.T) {
		f := newFixture(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/jobs/"+id.NewJobID().String()+"/actions",
			map[string]string{"action": "HIDE", "reason": "reported"})
		req, _ = testutil.WithAdmin(req)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})
}

func TestHandleBulkConfirm(t *testing.T) {
	t.Run("itemizes partial failure", func(t *testing.T) {
		f := newFixture(t)
		now := time.Now()
		paid := &models.Principal{
			ID:               id.NewUserID(),
			Email:            "ines.fontes@example.com",
			Role:             models.RoleTalent,
			VerificationTier: models.TierComplete,
			PaymentReference: "WISE-300",
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		require.NoError(t, f.principals.Create(context.Background(), paid))
		missing := id.NewUserID()

		req := testutil.NewJSONRequest(t, http.MethodPost, "/payments/confirm",
			map[string]any{"userIds": []string{paid.ID.String(), missing.String()}})
		req, _ = testutil.WithAdmin(req)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusOK(t, rr)

		resp := testutil.UnmarshalResponse[BulkConfirmResponse](t, rr)
		assert.Equal(t, 1, resp.Confirmed)
		require.Len(t, resp.Failed, 1)
		assert.Equal(t, missing.String(), resp.Failed[0].UserID)
	})

	t.Run("duplicate ids collapse to one confirmation", func(t *testing.T) {
		f := newFixture(t)
		now := time.Now()
		p := &models.Principal{
			ID:               id.NewUserID(),
			Email:            "ines.fontes@example.com",
			Role:             models.RoleTalent,
			VerificationTier: models.TierComplete,
			PaymentReference: "WISE-301",
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		require.NoError(t, f.principals.Create(context.Background(), p))

		req := testutil.NewJSONRequest(t, http.MethodPost, "/payments/confirm",
			map[string]any{"userIds": []string{p.ID.String(), " " + p.ID.String() + " "}})
		req, _ = testutil.WithAdmin(req)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[BulkConfirmResponse](t, rr)
		assert.Equal(t, 1, resp.Confirmed)
		assert.Empty(t, resp.Failed)
	})

	t.Run("invalid id in the list rejected up front", func(t *testing.T) {
		f := newFixture(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/payments/confirm",
			map[string]any{"userIds": []string{"not-a-uuid"}})
		req, _ = testutil.WithAdmin(req)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})

	t.Run("empty list rejected", func(t *testing.T) {
		f := newFixture(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/payments/confirm",
			map[string]any{"userIds": []string{}})
		req, _ = testutil.WithAdmin(req)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})
}

func TestHandleAudit(t *testing.T) {
	t.Run("lists entries for a target", func(t *testing.T) {
		f := newFixture(t)
		p := f.seedTalent(t, models.TierBasic)

		promote := testutil.NewJSONRequest(t, http.MethodPost, "/users/"+p.ID.String()+"/tier",
			map[string]string{"direction": "PROMOTE", "reason": "documents verified"})
		promote, adminID := testutil.WithAdmin(promote)
		testutil.AssertStatusOK(t, testutil.DoRequest(f.router, promote))

		req := testutil.NewRequest(t, http.MethodGet, "/users/"+p.ID.String()+"/audit")
		req, _ = testutil.WithAdmin(req)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusOK(t, rr)

		resp := testutil.UnmarshalResponse[AuditListResponse](t, rr)
		require.Len(t, resp.Entries, 1)
		assert.Equal(t, "VERIFICATION_TIER_CHANGE", resp.Entries[0].ActionType)
		assert.Equal(t, adminID.String(), resp.Entries[0].ActorID)
		assert.Equal(t, "documents verified", resp.Entries[0].Reason)
	})

	t.Run("recent feed honors the limit", func(t *testing.T) {
		f := newFixture(t)
		for i := 0; i < 3; i++ {
			p := f.seedDirector(t, 30)
			req := testutil.NewJSONRequest(t, http.MethodPost, "/users/"+p.ID.String()+"/trust-score",
				map[string]any{"score": 60, "reason": "calibration"})
			req, _ = testutil.WithAdmin(req)
			testutil.AssertStatusOK(t, testutil.DoRequest(f.router, req))
		}

		req := testutil.NewRequest(t, http.MethodGet, "/audit?limit=2")
		req, _ = testutil.WithAdmin(req)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[AuditListResponse](t, rr)
		assert.Len(t, resp.Entries, 2)
	})

	t.Run("invalid limit rejected", func(t *testing.T) {
		f := newFixture(t)
		req := testutil.NewRequest(t, http.MethodGet, "/audit?limit=nope")
		req, _ = testutil.WithAdmin(req)

		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})
}
