package handlers

import (
	"gif-maker-live/internal/artifacts"
	"gif-maker-live/internal/conversion"
	"gif-maker-live/internal/intake"
)

type Handlers struct {
	converter *conversion.Converter
	store     *artifacts.Store
	intake    *intake.Intake
}

func New(converter *conversion.Converter, store *artifacts.Store, in *intake.Intake) *Handlers {
	return &Handlers{
		converter: converter,
		store:     store,
		intake:    in,
	}
}
