package directory

import (
	"context"

	"github.com/odontocare/citas-service/internal/auth"
)

// StaticGateway serves lookups from fixed in-memory data. Used in tests and
// for local development without a user-admin instance.
type StaticGateway struct {
	doctores  map[int64]Doctor
	centros   map[int64]Centro
	pacientes map[int64]Paciente
}

func NewStaticGateway() *StaticGateway {
	return &StaticGateway{
		doctores:  make(map[int64]Doctor),
		centros:   make(map[int64]Centro),
		pacientes: make(map[int64]Paciente),
	}
}

func (g *StaticGateway) AddDoctor(d Doctor) *StaticGateway {
	g.doctores[d.ID] = d
	return g
}

func (g *StaticGateway) AddCentro(c Centro) *StaticGateway {
	g.centros[c.ID] = c
	return g
}

func (g *StaticGateway) AddPaciente(p Paciente) *StaticGateway {
	g.pacientes[p.ID] = p
	return g
}

func (g *StaticGateway) GetDoctor(_ context.Context, id int64, _ auth.Role) (*Doctor, error) {
	d, ok := g.doctores[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (g *StaticGateway) GetCentro(_ context.Context, id int64) (*Centro, error) {
	c, ok := g.centros[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (g *StaticGateway) GetPaciente(_ context.Context, id int64, _ auth.Role) (*Paciente, error) {
	p, ok := g.pacientes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}
