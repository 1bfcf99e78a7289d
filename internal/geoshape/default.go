package geoshape

import (
	"github.com/peterstace/simplefeatures/geom"

	"github.com/mohammed-shakir/geoshape-index/internal/geo/sfkernel"
	"github.com/mohammed-shakir/geoshape-index/internal/geoerr"
	"github.com/mohammed-shakir/geoshape-index/internal/mapper"
	geohashmapper "github.com/mohammed-shakir/geoshape-index/internal/mapper/geohash"
	h3mapper "github.com/mohammed-shakir/geoshape-index/internal/mapper/h3"
	s2mapper "github.com/mohammed-shakir/geoshape-index/internal/mapper/s2"
)

// GeoMapper is a Mapper over simplefeatures geometries.
type GeoMapper = Mapper[geom.Geometry]

// GeoSchema is a Schema over simplefeatures geometries.
type GeoSchema = Schema[geom.Geometry]

// Grids returns a registry holding the geohash, h3 and s2 grids.
func Grids() *mapper.Registry {
	return mapper.NewRegistry(geohashmapper.New(), h3mapper.New(), s2mapper.New())
}

// NewGeoMapper builds a mapper on the simplefeatures kernel.
func NewGeoMapper(cfg Config, k *sfkernel.Kernel, opts ...Option) (*GeoMapper, error) {
	return New[geom.Geometry](cfg, k, Grids(), sfkernel.ToGeomT, opts...)
}

// BuildSchema builds one mapper per config.
func BuildSchema(cfgs []Config, k *sfkernel.Kernel, opts ...Option) (*GeoSchema, error) {
	if len(cfgs) == 0 {
		return nil, geoerr.Configf("schema has no geo shape fields")
	}
	grids := Grids()
	mappers := make([]*GeoMapper, 0, len(cfgs))
	for _, cfg := range cfgs {
		m, err := New[geom.Geometry](cfg, k, grids, sfkernel.ToGeomT, opts...)
		if err != nil {
			return nil, err
		}
		mappers = append(mappers, m)
	}
	return NewSchema(mappers...)
}
