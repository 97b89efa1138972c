package handlers

import (
	"time"

	"github.com/jmoiron/sqlx"

	"pricewatch/internal/config"
	"pricewatch/internal/repos"
	"pricewatch/internal/services"
)

type Deps struct {
	ProductHandler *ProductHandler
	GroupHandler   *GroupHandler
	CompareHandler *CompareHandler
	JobHandler     *JobHandler
	StatsHandler   *StatsHandler

	// Exposed for the scheduler wiring in main.
	Collector *services.Collector
	History   *repos.HistoryRepo
	Snapshots *repos.SnapshotRepo
}

func NewDeps(db *sqlx.DB, cfg config.Config, fetcher services.Fetcher) *Deps {
	productRepo := repos.NewProductRepo(db)
	historyRepo := repos.NewHistoryRepo(db)
	groupRepo := repos.NewGroupRepo(db)
	snapshotRepo := repos.NewSnapshotRepo(db)

	agg := services.NewAggregator(productRepo, historyRepo, cfg.WindowDays)
	tracker := services.NewTrackerService(productRepo, historyRepo, fetcher, agg)
	collector := services.NewCollector(productRepo, historyRepo, fetcher, agg,
		cfg.CollectorBatchSize,
		time.Duration(cfg.CollectorDelayMin)*time.Millisecond,
		time.Duration(cfg.CollectorDelayMax)*time.Millisecond)
	comp := services.NewComparisonService(groupRepo, snapshotRepo, productRepo, tracker, fetcher, cfg)

	return &Deps{
		ProductHandler: &ProductHandler{Tracker: tracker},
		GroupHandler:   &GroupHandler{Comp: comp},
		CompareHandler: &CompareHandler{Comp: comp},
		JobHandler:     &JobHandler{Collector: collector},
		StatsHandler:   &StatsHandler{Comp: comp},
		Collector:      collector,
		History:        historyRepo,
		Snapshots:      snapshotRepo,
	}
}
