package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	activityhandler "github.com/bizscreen/console/domains/activity/be/handler"
	activityrepo "github.com/bizscreen/console/domains/activity/be/repo"
	activityservice "github.com/bizscreen/console/domains/activity/be/service"
	assistanthandler "github.com/bizscreen/console/domains/assistant/be/handler"
	assistantrepo "github.com/bizscreen/console/domains/assistant/be/repo"
	assistantservice "github.com/bizscreen/console/domains/assistant/be/service"
	profileshandler "github.com/bizscreen/console/domains/profiles/be/handler"
	profilesrepo "github.com/bizscreen/console/domains/profiles/be/repo"
	profilesservice "github.com/bizscreen/console/domains/profiles/be/service"
	resellershandler "github.com/bizscreen/console/domains/resellers/be/handler"
	resellersrepo "github.com/bizscreen/console/domains/resellers/be/repo"
	resellersservice "github.com/bizscreen/console/domains/resellers/be/service"
	sceneshandler "github.com/bizscreen/console/domains/scenes/be/handler"
	scenesrepo "github.com/bizscreen/console/domains/scenes/be/repo"
	scenesservice "github.com/bizscreen/console/domains/scenes/be/service"
	scheduleshandler "github.com/bizscreen/console/domains/schedules/be/handler"
	schedulesrepo "github.com/bizscreen/console/domains/schedules/be/repo"
	schedulesservice "github.com/bizscreen/console/domains/schedules/be/service"
	socialhandler "github.com/bizscreen/console/domains/social/be/handler"
	socialrepo "github.com/bizscreen/console/domains/social/be/repo"
	socialservice "github.com/bizscreen/console/domains/social/be/service"
	ssohandler "github.com/bizscreen/console/domains/sso/be/handler"
	ssorepo "github.com/bizscreen/console/domains/sso/be/repo"
	ssoservice "github.com/bizscreen/console/domains/sso/be/service"
	tenantshandler "github.com/bizscreen/console/domains/tenants/be/handler"
	tenantsrepo "github.com/bizscreen/console/domains/tenants/be/repo"
	tenantsservice "github.com/bizscreen/console/domains/tenants/be/service"
	whitelabelhandler "github.com/bizscreen/console/domains/whitelabel/be/handler"
	whitelabelrepo "github.com/bizscreen/console/domains/whitelabel/be/repo"
	whitelabelservice "github.com/bizscreen/console/domains/whitelabel/be/service"
	"github.com/bizscreen/console/platform/go/cache"
	"github.com/bizscreen/console/platform/go/persistence"
	"github.com/bizscreen/console/platform/go/storage"
)

// backends are the external resources the domains run on. A nil pool selects in-memory repositories.
type backends struct {
	pool  *pgxpool.Pool
	kv    cache.KV
	store storage.Store
	// pings are run by /readyz.
	pings map[string]func(ctx context.Context) error
}

type registrar interface {
	Register(r chi.Router)
}

// app holds the wired services and the handlers that expose them.
type app struct {
	tenants tenantsservice.Service
	// scoped handlers run behind the tenant scope middleware.
	scoped []registrar
	// admin handlers run behind the platform admin check.
	admin []registrar
}

type repositories struct {
	activity   activityservice.Repository
	profiles   profilesservice.Repository
	scenes     scenesservice.Repository
	schedules  schedulesservice.Repository
	playlists  assistantservice.PlaylistRepository
	sso        ssoservice.Repository
	whitelabel whitelabelservice.Repository
	resellers  resellersservice.Repository
	social     socialservice.Repository
	tenants    tenantsservice.Repository
}

func memoryRepositories() repositories {
	return repositories{
		activity:   activityrepo.NewMemoryRepository(),
		profiles:   profilesrepo.NewMemoryRepository(),
		scenes:     scenesrepo.NewMemoryRepository(),
		schedules:  schedulesrepo.NewMemoryRepository(),
		playlists:  assistantrepo.NewMemoryPlaylists(),
		sso:        ssorepo.NewMemoryRepository(),
		whitelabel: whitelabelrepo.NewMemoryRepository(),
		resellers:  resellersrepo.NewMemoryRepository(),
		social:     socialrepo.NewMemoryRepository(),
		tenants:    tenantsrepo.NewMemoryRepository(),
	}
}

func postgresRepositories(pool *pgxpool.Pool) (repositories, error) {
	db := persistence.NewTenantDB(persistence.TenantDBConfig{Pool: pool})

	activityStore, err := persistence.NewActivityStore(db)
	if err != nil {
		return repositories{}, err
	}
	profileStore, err := persistence.NewProfileStore(db)
	if err != nil {
		return repositories{}, err
	}
	sceneStore, err := persistence.NewSceneStore(db)
	if err != nil {
		return repositories{}, err
	}
	scheduleStore, err := persistence.NewScheduleStore(db)
	if err != nil {
		return repositories{}, err
	}
	playlistStore, err := persistence.NewPlaylistStore(db)
	if err != nil {
		return repositories{}, err
	}
	ssoStore, err := persistence.NewSSOStore(db)
	if err != nil {
		return repositories{}, err
	}
	whiteLabelStore, err := persistence.NewWhiteLabelStore(db)
	if err != nil {
		return repositories{}, err
	}
	licenseStore, err := persistence.NewLicenseStore(db)
	if err != nil {
		return repositories{}, err
	}
	socialStore, err := persistence.NewSocialStore(db)
	if err != nil {
		return repositories{}, err
	}
	tenantStore, err := persistence.NewTenantStore(db)
	if err != nil {
		return repositories{}, err
	}

	return repositories{
		activity:   activityrepo.NewPostgresRepository(activityStore),
		profiles:   profilesrepo.NewPostgresRepository(profileStore),
		scenes:     scenesrepo.NewPostgresRepository(sceneStore),
		schedules:  schedulesrepo.NewPostgresRepository(scheduleStore),
		playlists:  assistantrepo.NewPostgresPlaylists(playlistStore),
		sso:        ssorepo.NewPostgresRepository(ssoStore),
		whitelabel: whitelabelrepo.NewPostgresRepository(whiteLabelStore),
		resellers:  resellersrepo.NewPostgresRepository(licenseStore),
		social:     socialrepo.NewPostgresRepository(socialStore),
		tenants:    tenantsrepo.NewPostgresRepository(tenantStore),
	}, nil
}

// newApp wires every domain onto the given backends.
func newApp(cfg config, b backends, logger *zap.Logger) (*app, error) {
	if b.kv == nil {
		return nil, errors.New("kv backend is required")
	}

	repos := memoryRepositories()
	if b.pool != nil {
		var err error
		if repos, err = postgresRepositories(b.pool); err != nil {
			return nil, fmt.Errorf("init stores: %w", err)
		}
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory repositories")
	}

	activity := activityservice.New(repos.activity, time.Now)

	var generator assistantservice.Generator = assistantservice.TemplateGenerator{}
	if cfg.OpenAIAPIKey != "" {
		generator = assistantservice.NewOpenAIGenerator(
			assistantservice.NewOpenAIChat(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel))
	}
	logger.Info("content assistant generator selected", zap.String("generator", generator.Name()))

	tenants := tenantsservice.New(tenantsservice.Config{
		Repo:     repos.tenants,
		Cache:    b.kv,
		Store:    b.store,
		EnvKey:   cfg.EnvKey,
		Activity: activity,
		Logger:   logger.Named("tenants"),
		CacheTTL: cfg.DashboardCacheTTL,
	})

	a := &app{tenants: tenants}
	a.admin = []registrar{tenantshandler.New(tenants, logger)}
	a.scoped = []registrar{
		activityhandler.New(activity, logger),
		profileshandler.New(profilesservice.New(repos.profiles, activity, logger.Named("profiles")), logger),
		sceneshandler.New(scenesservice.New(repos.scenes, activity, logger.Named("scenes")), logger),
		scheduleshandler.New(schedulesservice.New(repos.schedules, activity, logger.Named("schedules")), logger),
		assistanthandler.New(assistantservice.New(assistantservice.Config{
			Generator: generator,
			Store:     assistantrepo.NewKVSuggestionStore(b.kv),
			Playlists: repos.playlists,
			Activity:  activity,
			Logger:    logger.Named("assistant"),
		}), logger),
		ssohandler.New(ssoservice.New(repos.sso, ssoservice.NewHTTPDiscoverer(nil), activity, logger.Named("sso")), logger),
		whitelabelhandler.New(whitelabelservice.New(whitelabelservice.Config{
			Repo:     repos.whitelabel,
			Store:    b.store,
			EnvKey:   cfg.EnvKey,
			Activity: activity,
			Logger:   logger.Named("whitelabel"),
		}), logger),
		resellershandler.New(resellersservice.New(repos.resellers, activity, logger.Named("resellers")), logger),
		socialhandler.New(socialservice.New(socialservice.Config{
			Repo:     repos.social,
			Activity: activity,
			Logger:   logger.Named("social"),
		}), logger),
	}
	return a, nil
}
