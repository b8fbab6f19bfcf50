package instrument

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotmc/prologix"
	"github.com/gotmc/prologix/driver/vcp"
)

// GPIB talks to an instrument through a Prologix GPIB-USB controller
type GPIB struct {
	port       *vcp.VCP
	controller *prologix.Controller
}

// OpenGPIB opens the Prologix virtual COM port and addresses the instrument
func OpenGPIB(_ context.Context, r Resource) (Transport, error) {
	port, err := vcp.NewVCP(r.Address)
	if err != nil {
		return nil, fmt.Errorf("opening prologix port: %w", err)
	}

	controller, err := prologix.NewController(port, r.Port, false)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("creating prologix controller: %w", err), port.Close())
	}

	return &GPIB{port: port, controller: controller}, nil
}

func (g *GPIB) Write(_ context.Context, cmd string) error {
	return g.controller.Command(cmd)
}

func (g *GPIB) Query(_ context.Context, cmd string) (string, error) {
	return g.controller.Query(cmd)
}

func (g *GPIB) Close() error {
	// hand the instrument back to its front panel before releasing the port
	fpErr := g.controller.FrontPanel(true)
	return errors.Join(fpErr, g.port.Close())
}
