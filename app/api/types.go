package api

import (
	"context"
	"net/http"

	"github.com/lysyi3m/press-comb/app/content"
	"github.com/lysyi3m/press-comb/app/database"
	"github.com/lysyi3m/press-comb/app/feed"
	"github.com/lysyi3m/press-comb/app/menu"
	"github.com/lysyi3m/press-comb/app/sources"
	"github.com/lysyi3m/press-comb/app/tasks"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, loop *content.Loop, items []*content.Item) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type MenuTreeBuilder interface {
	GetMenuTree(ctx context.Context, location string, parentObjectID, overrideObjectID int64, view menu.View) ([]menu.Node, error)
}

var _ MenuTreeBuilder = (*menu.Builder)(nil)

type Handler struct {
	aggregator  *content.Aggregator
	menus       MenuTreeBuilder
	generator   GeneratorInterface
	configCache *sources.ConfigCache
	sourceRepo  database.SourceStore
	postRepo    database.SourcePostStore
	scheduler   tasks.TaskSchedulerInterface
	metrics     http.Handler
}
