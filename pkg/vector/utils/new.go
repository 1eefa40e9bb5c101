package vectorutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/crosswirelabs/loom/pkg/vector"
	"github.com/crosswirelabs/loom/pkg/vector/qdrant"
	"github.com/crosswirelabs/loom/pkg/vector/sqlitevec"
)

type NewVectorDriverOpts struct {
	ProviderType string
	Target       string
	Port         int
	Collection   string
	Dimensions   uint
	Logger       *zap.Logger
}

func NewVectorDriver(o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "sqlitevec":
		return sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
			DBPath:     o.Target,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "qdrant":
		return qdrant.NewQdrantDriver(qdrant.Config{
			Host:           o.Target,
			Port:           o.Port,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
