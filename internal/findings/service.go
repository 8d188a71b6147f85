package findings

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-findings/internal/appsec"
	"github.com/scan-io-git/scanio-findings/internal/config"
	"github.com/scan-io-git/scanio-findings/internal/models"
	"github.com/scan-io-git/scanio-findings/internal/vcsurl"
)

// assetsGroupKey is the single synthetic group all matched asset values are sent under.
const assetsGroupKey = "0"

// Settings is the part of the configuration store the service reads.
type Settings interface {
	IsConfigured() bool
	Filters() config.FindingFilters
}

// RemoteSource provides the remote URL of the local repository.
type RemoteSource interface {
	RemoteURL() (string, bool)
}

// API is the part of the retrieval client the service calls.
type API interface {
	SearchAssets(ctx context.Context, q appsec.AssetQuery) (*models.Page[models.Asset], error)
	FetchAllPages(ctx context.Context, q appsec.FindingsQuery, maxItems int) ([]models.Finding, error)
}

// Progress receives a short status line at every step.
type Progress func(message string)

// Service synchronizes the findings of the local repository with the findings API.
type Service struct {
	api      API
	settings Settings
	repo     RemoteSource
	logger   hclog.Logger
}

// NewService creates a synchronization Service.
func NewService(api API, settings Settings, repo RemoteSource, logger hclog.Logger) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Service{
		api:      api,
		settings: settings,
		repo:     repo,
		logger:   logger.Named("sync"),
	}
}

// Refresh resolves the repository, finds its assets and fetches their findings
// with the configured filters. The result keeps server order. Failures are
// *SyncError values, except cancellation which is returned as the context error.
func (s *Service) Refresh(ctx context.Context, progress Progress) ([]models.Finding, error) {
	if progress == nil {
		progress = func(string) {}
	}

	if !s.settings.IsConfigured() {
		return nil, newError(KindNotConfigured, nil, "API URL and token are not configured. Run the setup command first.")
	}

	progress("Getting repository URL...")
	remote, ok := s.repo.RemoteURL()
	if !ok {
		return nil, newError(KindRepositoryNotFound, nil, "Repository URL not found. Add a git remote to the project.")
	}

	progress("Parsing repository URL...")
	identity, ok := vcsurl.ParseRemote(remote)
	if !ok {
		return nil, newError(KindURLUnparsable, nil, "Failed to parse repository URL: %s", remote)
	}
	s.logger.Debug("resolved repository identity", "host", identity.Host, "path", identity.Path)

	progress("Searching assets...")
	assets, err := s.api.SearchAssets(ctx, appsec.AssetQuery{
		Search: identity.SearchText(),
		Type:   models.AssetRepository,
	})
	if err != nil {
		return nil, transportError(ctx, "search assets", err)
	}
	if len(assets.Results) == 0 {
		return nil, newError(KindAssetNotRegistered, nil, "Repository %s is not registered as an asset.", identity)
	}

	filters := s.settings.Filters()
	matched := assets.Results
	if filters.Product != 0 {
		matched = assetsOfProduct(matched, filters.Product)
		if len(matched) == 0 {
			return nil, newError(KindAssetNotRegistered, nil,
				"Repository %s is not registered as an asset of product %d (found in products %v).",
				identity, filters.Product, models.DistinctProductIDs(assets.Results))
		}
	}

	values := models.DistinctAssetValues(matched)
	s.logger.Info("matched assets", "count", len(matched), "values", values, "products", models.DistinctProductIDs(matched))

	query := appsec.FindingsQuery{
		Product:        filters.Product,
		Severities:     filters.Severities,
		TriageStatuses: filters.TriageStatuses,
		AssetsIn:       map[string][]string{assetsGroupKey: values},
	}

	progress(fmt.Sprintf("Fetching findings for %d asset(s)...", len(values)))
	found, err := s.api.FetchAllPages(ctx, query, filters.MaxFindings)
	if err != nil {
		return nil, transportError(ctx, "fetch findings", err)
	}
	if len(found) == 0 {
		return nil, newError(KindNoFindings, nil, "No findings match the configured filters.")
	}

	progress(fmt.Sprintf("Loaded %d findings", len(found)))
	s.logger.Info("findings synchronized", "count", len(found))
	return found, nil
}

func assetsOfProduct(assets []models.Asset, product int64) []models.Asset {
	var out []models.Asset
	for _, a := range assets {
		if a.ProductID == product {
			out = append(out, a)
		}
	}
	return out
}
