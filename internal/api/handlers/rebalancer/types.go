package rebalancer

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-openapi/errors"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
	"github.com/go-openapi/validate"
	"github.com/shopspring/decimal"

	"github/chapool/cctp-rebalancer/internal/util"
	"github/chapool/cctp-rebalancer/internal/wallet/chain"
	"github/chapool/cctp-rebalancer/internal/wallet/cycle"
	"github/chapool/cctp-rebalancer/internal/wallet/rebalance"
	"github/chapool/cctp-rebalancer/internal/wallet/transfer"
)

// usdcDecimals is the token precision on every supported chain.
const usdcDecimals = 6

const (
	patternAddress = `^0x[0-9a-fA-F]{40}$`
	patternHash    = `^0x[0-9a-fA-F]{64}$`
	patternAmount  = `^[0-9]+$`
	patternPercent = `^-?[0-9]+\.[0-9]{2}$`
)

type field struct {
	name  string
	value string
}

var outcomeStates = []any{
	transfer.StateIdle.String(),
	transfer.StateApproving.String(),
	transfer.StateBurning.String(),
	transfer.StateAwaitingAttestation.String(),
	transfer.StateMinting.String(),
	transfer.StateComplete.String(),
	transfer.StateFailed.String(),
}

// ChainItem is one configured chain.
type ChainItem struct {
	// Required: true
	Name *string `json:"name"`

	// Required: true
	// Minimum: 1
	ChainID *int64 `json:"chainId"`

	Domain             uint32 `json:"domain"`
	USDC               string `json:"usdc"`
	TokenMessenger     string `json:"tokenMessenger"`
	MessageTransmitter string `json:"messageTransmitter"`
}

func (m *ChainItem) Validate(_ strfmt.Registry) error {
	var res []error

	if err := validate.Required("name", "body", m.Name); err != nil {
		res = append(res, err)
	}
	if err := validate.Required("chainId", "body", m.ChainID); err != nil {
		res = append(res, err)
	} else if err := validate.MinimumInt("chainId", "body", *m.ChainID, 1, false); err != nil {
		res = append(res, err)
	}

	for _, f := range []field{
		{"usdc", m.USDC},
		{"tokenMessenger", m.TokenMessenger},
		{"messageTransmitter", m.MessageTransmitter},
	} {
		if err := validate.Pattern(f.name, "body", f.value, patternAddress); err != nil {
			res = append(res, err)
		}
	}

	if len(res) > 0 {
		return errors.CompositeValidationError(res...)
	}
	return nil
}

type GetChainsResponse struct {
	// Required: true
	Chains []*ChainItem `json:"chains"`
}

func (m *GetChainsResponse) Validate(formats strfmt.Registry) error {
	if err := validate.Required("chains", "body", m.Chains); err != nil {
		return err
	}
	return validateItems("chains", m.Chains, formats)
}

// AllocationItem is the balance of one chain. Amount is in base units,
// Display in USDC.
type AllocationItem struct {
	// Required: true
	Chain *string `json:"chain"`

	// Required: true
	// Pattern: ^[0-9]+$
	Amount *string `json:"amount"`

	Display    string `json:"display"`
	Percentage string `json:"percentage"`
	Target     string `json:"target,omitempty"`
	Deviation  string `json:"deviation,omitempty"`
	Degraded   bool   `json:"degraded,omitempty"`
}

func (m *AllocationItem) Validate(_ strfmt.Registry) error {
	var res []error

	if err := validate.Required("chain", "body", m.Chain); err != nil {
		res = append(res, err)
	}
	if err := validate.Required("amount", "body", m.Amount); err != nil {
		res = append(res, err)
	} else if err := validate.Pattern("amount", "body", *m.Amount, patternAmount); err != nil {
		res = append(res, err)
	}

	for _, f := range []field{
		{"percentage", m.Percentage},
		{"target", m.Target},
		{"deviation", m.Deviation},
	} {
		if f.value == "" && f.name != "percentage" {
			continue
		}
		if err := validate.Pattern(f.name, "body", f.value, patternPercent); err != nil {
			res = append(res, err)
		}
	}

	if len(res) > 0 {
		return errors.CompositeValidationError(res...)
	}
	return nil
}

type ActionItem struct {
	// Required: true
	// Format: uuid
	ID *strfmt.UUID `json:"id"`

	// Required: true
	From *string `json:"from"`

	// Required: true
	To *string `json:"to"`

	// Required: true
	// Pattern: ^[0-9]+$
	Amount *string `json:"amount"`

	Display string `json:"display"`
}

func (m *ActionItem) Validate(formats strfmt.Registry) error {
	var res []error

	if err := validateUUID("id", m.ID, formats); err != nil {
		res = append(res, err)
	}
	if err := validate.Required("from", "body", m.From); err != nil {
		res = append(res, err)
	}
	if err := validate.Required("to", "body", m.To); err != nil {
		res = append(res, err)
	}
	if err := validate.Required("amount", "body", m.Amount); err != nil {
		res = append(res, err)
	} else if err := validate.Pattern("amount", "body", *m.Amount, patternAmount); err != nil {
		res = append(res, err)
	}

	if len(res) > 0 {
		return errors.CompositeValidationError(res...)
	}
	return nil
}

type FailureItem struct {
	Step    string `json:"step"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// OutcomeItem is the result of one action. Transaction hashes are omitted
// for steps that never ran.
type OutcomeItem struct {
	// Required: true
	// Format: uuid
	ActionID *strfmt.UUID `json:"actionId"`

	// Required: true
	State *string `json:"state"`

	Success        bool         `json:"success"`
	DryRun         bool         `json:"dryRun,omitempty"`
	AlreadyMinted  bool         `json:"alreadyMinted,omitempty"`
	DegradedLookup bool         `json:"degradedLookup,omitempty"`
	ApproveTx      string       `json:"approveTx,omitempty"`
	SourceTx       string       `json:"sourceTx,omitempty"`
	DestTx         string       `json:"destTx,omitempty"`
	MessageID      string       `json:"messageId,omitempty"`
	DurationMs     int64        `json:"durationMs"`
	Error          *FailureItem `json:"error,omitempty"`
}

func (m *OutcomeItem) Validate(formats strfmt.Registry) error {
	var res []error

	if err := validateUUID("actionId", m.ActionID, formats); err != nil {
		res = append(res, err)
	}
	if err := validate.Required("state", "body", m.State); err != nil {
		res = append(res, err)
	} else if err := validate.EnumCase("state", "body", *m.State, outcomeStates, true); err != nil {
		res = append(res, err)
	}

	for _, f := range []field{
		{"approveTx", m.ApproveTx},
		{"sourceTx", m.SourceTx},
		{"destTx", m.DestTx},
		{"messageId", m.MessageID},
	} {
		if f.value == "" {
			continue
		}
		if err := validate.Pattern(f.name, "body", f.value, patternHash); err != nil {
			res = append(res, err)
		}
	}

	if len(res) > 0 {
		return errors.CompositeValidationError(res...)
	}
	return nil
}

type ReportResponse struct {
	// Required: true
	// Format: uuid
	ID *strfmt.UUID `json:"id"`

	// Format: date-time
	StartedAt strfmt.DateTime `json:"startedAt"`

	// Format: date-time
	FinishedAt strfmt.DateTime `json:"finishedAt"`

	DurationMs  int64             `json:"durationMs"`
	NoAction    bool              `json:"noAction"`
	Failed      bool              `json:"failed"`
	Total       string            `json:"total"`
	Allocations []*AllocationItem `json:"allocations"`
	Actions     []*ActionItem     `json:"actions"`
	Outcomes    []*OutcomeItem    `json:"outcomes"`
	// Projected is only set by the plan route.
	Projected []*AllocationItem `json:"projected,omitempty"`
}

func (m *ReportResponse) Validate(formats strfmt.Registry) error {
	var res []error

	if err := validateUUID("id", m.ID, formats); err != nil {
		res = append(res, err)
	}
	if err := validate.Pattern("total", "body", m.Total, patternAmount); err != nil {
		res = append(res, err)
	}
	if err := validateItems("allocations", m.Allocations, formats); err != nil {
		res = append(res, err)
	}
	if err := validateItems("actions", m.Actions, formats); err != nil {
		res = append(res, err)
	}
	if err := validateItems("outcomes", m.Outcomes, formats); err != nil {
		res = append(res, err)
	}
	if err := validateItems("projected", m.Projected, formats); err != nil {
		res = append(res, err)
	}

	if len(res) > 0 {
		return errors.CompositeValidationError(res...)
	}
	return nil
}

type GetBalancesResponse struct {
	// Required: true
	// Pattern: ^0x[0-9a-fA-F]{40}$
	Owner *string `json:"owner"`

	Total       string            `json:"total"`
	Allocations []*AllocationItem `json:"allocations"`
}

func (m *GetBalancesResponse) Validate(formats strfmt.Registry) error {
	var res []error

	if err := validate.Required("owner", "body", m.Owner); err != nil {
		res = append(res, err)
	} else if err := validate.Pattern("owner", "body", *m.Owner, patternAddress); err != nil {
		res = append(res, err)
	}
	if err := validate.Pattern("total", "body", m.Total, patternAmount); err != nil {
		res = append(res, err)
	}
	if err := validateItems("allocations", m.Allocations, formats); err != nil {
		res = append(res, err)
	}

	if len(res) > 0 {
		return errors.CompositeValidationError(res...)
	}
	return nil
}

type RebalanceResponse struct {
	// Required: true
	// Format: uuid
	CycleID *strfmt.UUID `json:"cycleId"`

	// Required: true
	Message *string `json:"message"`
}

func (m *RebalanceResponse) Validate(formats strfmt.Registry) error {
	var res []error

	if err := validateUUID("cycleId", m.CycleID, formats); err != nil {
		res = append(res, err)
	}
	if err := validate.Required("message", "body", m.Message); err != nil {
		res = append(res, err)
	}

	if len(res) > 0 {
		return errors.CompositeValidationError(res...)
	}
	return nil
}

func validateUUID(name string, id *strfmt.UUID, formats strfmt.Registry) error {
	if err := validate.Required(name, "body", id); err != nil {
		return err
	}
	if err := validate.FormatOf(name, "body", "uuid", id.String(), formats); err != nil {
		return err
	}
	return nil
}

func validateItems[T util.Validatable](name string, items []T, formats strfmt.Registry) error {
	for i := range items {
		if swag.IsZero(items[i]) {
			continue
		}

		if err := items[i].Validate(formats); err != nil {
			path := name + "." + strconv.Itoa(i)
			switch e := err.(type) { //nolint:errorlint
			case *errors.Validation:
				return e.ValidateName(path)
			case *errors.CompositeError:
				return e.ValidateName(path)
			}
			return err
		}
	}
	return nil
}

func newChainItem(h chain.Handle) *ChainItem {
	return &ChainItem{
		Name:               swag.String(h.Name),
		ChainID:            swag.Int64(h.ChainID),
		Domain:             h.Domain,
		USDC:               h.USDC.Hex(),
		TokenMessenger:     h.TokenMessenger.Hex(),
		MessageTransmitter: h.MessageTransmitter.Hex(),
	}
}

func newReportResponse(r *cycle.Report) *ReportResponse {
	degraded := make(map[string]bool, len(r.Degraded))
	for _, name := range r.Degraded {
		degraded[name] = true
	}

	id := strfmt.UUID(r.ID.String())
	res := &ReportResponse{
		ID:          &id,
		StartedAt:   strfmt.DateTime(r.StartedAt),
		FinishedAt:  strfmt.DateTime(r.FinishedAt),
		DurationMs:  r.Duration().Milliseconds(),
		NoAction:    r.NoAction,
		Failed:      r.Failed,
		Total:       rebalance.Total(r.Balances).String(),
		Allocations: make([]*AllocationItem, len(r.Balances)),
		Actions:     make([]*ActionItem, len(r.Actions)),
		Outcomes:    make([]*OutcomeItem, len(r.Outcomes)),
	}

	for i, b := range r.Balances {
		item := newAllocationItem(b)
		if i < len(r.Deviations) {
			item.Target = r.Deviations[i].Target.StringFixed(2)
			item.Deviation = r.Deviations[i].Deviation.StringFixed(2)
		}
		item.Degraded = degraded[b.Chain.Name]
		res.Allocations[i] = item
	}

	for i, a := range r.Actions {
		actionID := strfmt.UUID(a.ID().String())
		res.Actions[i] = &ActionItem{
			ID:      &actionID,
			From:    swag.String(a.From().Name),
			To:      swag.String(a.To().Name),
			Amount:  swag.String(a.Amount().String()),
			Display: usdc(a.Amount()),
		}
	}

	for i, o := range r.Outcomes {
		res.Outcomes[i] = newOutcomeItem(o)
	}

	return res
}

func newAllocationItem(b rebalance.Balance) *AllocationItem {
	amount := b.Amount
	if amount == nil {
		amount = new(big.Int)
	}

	return &AllocationItem{
		Chain:      swag.String(b.Chain.Name),
		Amount:     swag.String(amount.String()),
		Display:    usdc(amount),
		Percentage: b.Display(),
	}
}

func newOutcomeItem(o transfer.Outcome) *OutcomeItem {
	actionID := strfmt.UUID(o.Action.ID().String())
	item := &OutcomeItem{
		ActionID:       &actionID,
		State:          swag.String(o.State.String()),
		Success:        o.Success,
		DryRun:         o.DryRun,
		AlreadyMinted:  o.AlreadyMinted,
		DegradedLookup: o.DegradedLookup,
		ApproveTx:      hashOrEmpty(o.ApproveTx),
		SourceTx:       hashOrEmpty(o.SourceTx),
		DestTx:         hashOrEmpty(o.DestTx),
		MessageID:      hashOrEmpty(o.MessageID),
		DurationMs:     o.Duration.Milliseconds(),
	}

	if o.Err != nil {
		item.Error = &FailureItem{
			Step:    o.Err.Step.String(),
			Kind:    string(o.Err.Kind),
			Message: o.Err.Error(),
		}
	}

	return item
}

func usdc(amount *big.Int) string {
	return decimal.NewFromBigInt(amount, -usdcDecimals).StringFixed(2)
}

func hashOrEmpty(h common.Hash) string {
	if h == (common.Hash{}) {
		return ""
	}
	return h.Hex()
}
