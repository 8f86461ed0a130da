package handlers

import (
	"context"
	"io"

	"github.com/imamik/chainfleet/internal/deployment"
	"github.com/imamik/chainfleet/internal/ledger"
	"github.com/imamik/chainfleet/internal/placement"
)

// Plan validates req exactly as a deployment would and prints the
// resulting placement and component model without starting anything.
func Plan(ctx context.Context, w io.Writer, format Format, req deployment.CreateRequest) error {
	spec, model, err := deployment.NewService(nil, nil, nil).Prepare(ctx, req)
	if err != nil {
		return err
	}
	if !format.styled() {
		return writeYAML(w, newPlanView(spec, model))
	}
	_, err = io.WriteString(w, renderPlan(spec, model))
	return err
}

// Components prints the component model of a blockchain type.
func Components(w io.Writer, format Format, blockchainType string) error {
	t, err := ledger.ParseBlockchainType(blockchainType)
	if err != nil {
		return err
	}
	components, err := placement.ComponentsForLedgerType(t)
	if err != nil {
		return err
	}
	if !format.styled() {
		return writeYAML(w, components)
	}
	_, err = io.WriteString(w, renderComponents(components))
	return err
}
