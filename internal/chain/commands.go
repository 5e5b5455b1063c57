package chain

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gish1337/alm-agent/internal/engine"
)

// rpcReader is the slice of Client the commands need. Tests supply fakes.
type rpcReader interface {
	Balance(ctx context.Context, address string) (uint64, error)
	RecentSignatures(ctx context.Context, address string, limit int) ([]SignatureInfo, error)
	PerformanceSamples(ctx context.Context, n int) ([]PerfSample, error)
	Slot(ctx context.Context) (uint64, error)
	Health(ctx context.Context) (bool, error)
}

// priceReader resolves the current SOL/USD price.
type priceReader interface {
	SolUSD(ctx context.Context) (float64, error)
}

const maxTransactionsListed = 25

// CommandsConfig wires a Commands runner. Monitor is optional: when set,
// /network answers from its cached snapshot while it is fresh.
type CommandsConfig struct {
	RPC     rpcReader
	Prices  priceReader
	Monitor *Monitor
}

// Commands recognizes and executes the direct slash commands. It is the
// concrete engine.CommandRunner for the chain skills.
type Commands struct {
	rpc     rpcReader
	prices  priceReader
	monitor *Monitor
}

// NewCommands creates a Commands runner.
func NewCommands(cfg CommandsConfig) *Commands {
	return &Commands{
		rpc:     cfg.RPC,
		prices:  cfg.Prices,
		monitor: cfg.Monitor,
	}
}

var commandWords = map[string]bool{
	"balance":      true,
	"transactions": true,
	"price":        true,
	"network":      true,
	"help":         true,
}

// IsCommand reports whether text starts with a known /word. Natural
// language, including messages that merely mention a slash, flows to
// the classifier/LLM path instead.
func (c *Commands) IsCommand(text string) bool {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return false
	}
	word, _, _ := strings.Cut(trimmed[1:], " ")
	return commandWords[strings.ToLower(word)]
}

// Execute runs one slash command. The returned message is always
// user-facing; failures come back with Success false, never as an error.
func (c *Commands) Execute(ctx context.Context, text string) engine.CommandResult {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return engine.CommandResult{Message: c.helpText(), Success: false}
	}

	word := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	args := fields[1:]

	switch word {
	case "balance":
		return c.balance(ctx, args)
	case "transactions":
		return c.transactions(ctx, args)
	case "price":
		return c.price(ctx)
	case "network":
		return c.network(ctx)
	case "help":
		return engine.CommandResult{Message: c.helpText(), Success: true}
	default:
		return engine.CommandResult{Message: "Unknown command. " + c.helpText(), Success: false}
	}
}

func (c *Commands) balance(ctx context.Context, args []string) engine.CommandResult {
	if len(args) != 1 {
		return fail("Usage: /balance <address>")
	}
	address := args[0]
	if err := validateAddress(address); err != nil {
		return fail("That doesn't look like a Solana address: " + err.Error())
	}

	lamports, err := c.rpc.Balance(ctx, address)
	if err != nil {
		return fail("Couldn't fetch the balance: " + readableRPCError(err))
	}

	return ok(fmt.Sprintf("Balance of %s: %s (%d lamports)", shorten(address), FormatSol(lamports), lamports))
}

func (c *Commands) transactions(ctx context.Context, args []string) engine.CommandResult {
	if len(args) < 1 || len(args) > 2 {
		return fail("Usage: /transactions <address> [limit]")
	}
	address := args[0]
	if err := validateAddress(address); err != nil {
		return fail("That doesn't look like a Solana address: " + err.Error())
	}

	limit := 10
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return fail("The limit must be a positive number.")
		}
		if n > maxTransactionsListed {
			n = maxTransactionsListed
		}
		limit = n
	}

	sigs, err := c.rpc.RecentSignatures(ctx, address, limit)
	if err != nil {
		return fail("Couldn't fetch the transaction history: " + readableRPCError(err))
	}
	if len(sigs) == 0 {
		return ok(fmt.Sprintf("No recent transactions for %s.", shorten(address)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Last %d transactions for %s:\n", len(sigs), shorten(address))
	for i, sig := range sigs {
		status := "ok"
		if sig.Failed() {
			status = "failed"
		}
		when := ""
		if sig.BlockTime != nil {
			when = " " + time.Unix(*sig.BlockTime, 0).UTC().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(&b, "%2d. %s [%s]%s\n", i+1, shorten(sig.Signature), status, when)
	}
	return ok(strings.TrimRight(b.String(), "\n"))
}

func (c *Commands) price(ctx context.Context) engine.CommandResult {
	if c.prices == nil {
		return fail("No price feed is configured.")
	}
	price, err := c.prices.SolUSD(ctx)
	if err != nil {
		return fail("Couldn't fetch the SOL price: " + err.Error())
	}
	return ok(fmt.Sprintf("SOL is trading at $%.2f USD.", price))
}

func (c *Commands) network(ctx context.Context) engine.CommandResult {
	// Serve from the monitor's cache when it is fresh so /network stays
	// fast even when the RPC node is slow.
	if c.monitor != nil {
		if snap, fresh := c.monitor.Snapshot(); fresh {
			return ok(formatNetworkStatus(snap))
		}
	}

	healthy, err := c.rpc.Health(ctx)
	if err != nil {
		return fail("Couldn't reach the RPC node: " + readableRPCError(err))
	}

	snap := StatusSnapshot{Healthy: healthy}
	if slot, err := c.rpc.Slot(ctx); err == nil {
		snap.Slot = slot
	}
	if samples, err := c.rpc.PerformanceSamples(ctx, 1); err == nil && len(samples) > 0 {
		snap.TPS = samples[0].TPS()
	}
	if c.prices != nil {
		if price, err := c.prices.SolUSD(ctx); err == nil {
			snap.SolPriceUSD = price
		}
	}
	return ok(formatNetworkStatus(snap))
}

func (c *Commands) helpText() string {
	return strings.Join([]string{
		"Available commands:",
		"  /balance <address>              SOL balance of a wallet",
		"  /transactions <address> [limit] recent transaction history",
		"  /price                          current SOL price in USD",
		"  /network                        cluster health, slot and TPS",
		"  /help                           this message",
	}, "\n")
}

func formatNetworkStatus(snap StatusSnapshot) string {
	state := "degraded"
	if snap.Healthy {
		state = "healthy"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Solana network is %s.", state)
	if snap.Slot > 0 {
		fmt.Fprintf(&b, " Slot %d.", snap.Slot)
	}
	if snap.TPS > 0 {
		fmt.Fprintf(&b, " Throughput %.0f TPS.", snap.TPS)
	}
	if snap.SolPriceUSD > 0 {
		fmt.Fprintf(&b, " SOL at $%.2f.", snap.SolPriceUSD)
	}
	return b.String()
}

func ok(msg string) engine.CommandResult {
	return engine.CommandResult{Message: msg, Success: true}
}

func fail(msg string) engine.CommandResult {
	return engine.CommandResult{Message: msg, Success: false}
}

// validateAddress checks the base58 shape of a Solana address without
// decoding it: 32-44 characters from the bitcoin base58 alphabet.
func validateAddress(address string) error {
	if len(address) < 32 || len(address) > 44 {
		return errors.New("expected 32-44 characters")
	}
	for _, r := range address {
		if !strings.ContainsRune("123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz", r) {
			return fmt.Errorf("invalid character %q", r)
		}
	}
	return nil
}

func shorten(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func readableRPCError(err error) string {
	var unavailable *ErrRPCUnavailable
	if errors.As(err, &unavailable) {
		return "the RPC endpoint is unavailable."
	}
	var rpcErr *ErrRPC
	if errors.As(err, &rpcErr) {
		return rpcErr.Message
	}
	return err.Error()
}
