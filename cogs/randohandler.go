// Package cogs contains the bot's race handlers. Handler is the command
// handler and seed lifecycle machine for a single race room.
package cogs

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"randobot/racetime"
	"randobot/zsr"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	botName       = "RandoBot"
	introPrefix   = "Welcome to OoTR!"
	defaultPreset = "weekly"
	devBranchKey  = "dev"
	helpURL       = "https://github.com/deains/ootr-randobot/blob/master/COMMANDS.md"
)

var greetings = []string{
	"Let me roll a seed for you. I promise it won't hurt.",
	"It's dangerous to go alone. Take this?",
	"I promise that today's seed will be nice.",
	"I can roll a race seed for you. If you dare.",
	"All rolled seeds comply with the laws of thermodynamics.",
}

// SeedService is the part of the zsr client the handler uses. It is an
// interface so tests can substitute a fake registry.
type SeedService interface {
	Resolve(branchKey, alias string) (zsr.Preset, bool)
	Presets(branchKey string) map[string]zsr.Preset
	RollSeed(ctx context.Context, branchKey, alias string, encrypt, password bool) (string, string, error)
	GetStatus(ctx context.Context, seedID string) (int, error)
	GetHash(ctx context.Context, seedID string) (string, error)
	GetPassword(ctx context.Context, seedID string) (string, bool)
	SeedURL(seedID string) string
}

// Session is the per-race mutable state. Fields get their defaults here,
// at creation, not lazily at read sites.
type Session struct {
	Locked       bool
	FPA          bool
	SeedID       string
	StatusChecks int
	PinnedMsg    string
	IntroSent    bool
	PasswordRoll bool
}

// Handler drives seed rolling for one race room: it interprets chat
// commands, enforces authorization and race-phase gating, and walks a
// rolled seed through polling to ready or failed. Command handling for a
// session is serialized by the session mutex; the poll loop re-checks its
// captured seed id before touching state, so a superseded poll chain
// becomes a no-op.
type Handler struct {
	room      racetime.Room
	seeds     SeedService
	delegator racetime.Delegator
	log       zerolog.Logger

	pollInterval    time.Duration
	maxStatusChecks int

	mu      sync.Mutex
	race    racetime.RaceData
	session Session
}

// NewHandler creates a handler for one race room. The host should deliver
// an initial race snapshot via OnRaceData before calling Begin.
func NewHandler(room racetime.Room, seeds SeedService, delegator racetime.Delegator, pollInterval time.Duration, maxStatusChecks int, logger zerolog.Logger) *Handler {
	return &Handler{
		room:            room,
		seeds:           seeds,
		delegator:       delegator,
		log:             logger,
		pollInterval:    pollInterval,
		maxStatusChecks: maxStatusChecks,
	}
}

// Begin sends the introduction message, once per session, unless the race
// is already underway or this race is delegated to a cooperating bot.
func (h *Handler) Begin(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.shouldStopLocked(ctx) {
		return nil
	}
	if h.session.IntroSent || h.race.InProgress() {
		return nil
	}

	text := introPrefix + " " + greetings[rand.Intn(len(greetings))]
	opts := &racetime.MessageOpts{
		Actions: h.introActions(),
		Pinned:  true,
	}
	if err := h.room.SendMessage(ctx, text, opts); err != nil {
		return fmt.Errorf("failed to send intro: %w", err)
	}
	h.session.IntroSent = true
	return nil
}

func (h *Handler) introActions() []racetime.Action {
	return []racetime.Action{
		{
			Label:    "Roll seed",
			HelpText: "Create a seed using the latest release",
			Message:  "!seed ${preset}",
			Submit:   "Roll race seed",
			Survey: []racetime.SurveyInput{
				racetime.SelectInput("preset", "Preset", presetOptions(h.seeds.Presets(zsr.StableKey)), defaultPreset),
			},
		},
		{
			Label:    "Dev seed",
			HelpText: "Create a seed using the latest dev branch",
			Message:  "!seeddev ${preset}",
			Submit:   "Roll dev seed",
			Survey: []racetime.SurveyInput{
				racetime.SelectInput("preset", "Preset", presetOptions(h.seeds.Presets(devBranchKey)), defaultPreset),
			},
		},
		racetime.Link("Help", helpURL),
	}
}

func presetOptions(presets map[string]zsr.Preset) map[string]string {
	options := make(map[string]string, len(presets))
	for alias, preset := range presets {
		options[alias] = preset.FullName
	}
	return options
}

// OnRaceData stores the latest race snapshot. Entering the in-progress
// phase unpins the intro message.
func (h *Handler) OnRaceData(ctx context.Context, race racetime.RaceData) {
	h.mu.Lock()
	h.race = race
	var pinned string
	if race.InProgress() && h.session.PinnedMsg != "" {
		pinned = h.session.PinnedMsg
		h.session.PinnedMsg = ""
	}
	h.mu.Unlock()

	if pinned != "" {
		if err := h.room.UnpinMessage(ctx, pinned); err != nil {
			h.log.Warn().Err(err).Msg("Failed to unpin intro message")
		}
	}
}

// Ended reports whether the race has reached a terminal state.
func (h *Handler) Ended() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.race.Ended()
}

// End releases the session, unpinning any remaining pinned message.
func (h *Handler) End(ctx context.Context) {
	h.mu.Lock()
	pinned := h.session.PinnedMsg
	h.session.PinnedMsg = ""
	h.mu.Unlock()

	if pinned != "" {
		if err := h.room.UnpinMessage(ctx, pinned); err != nil {
			h.log.Warn().Err(err).Msg("Failed to unpin message at session end")
		}
	}
}

// OnChatMessage handles one chat event: it captures the host's echo of the
// bot's pinned intro, and dispatches chat commands.
func (h *Handler) OnChatMessage(ctx context.Context, msg racetime.ChatMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.shouldStopLocked(ctx) {
		return nil
	}

	if msg.IsBot {
		if msg.Bot == botName && msg.IsPinned && strings.HasPrefix(msg.MessagePlain, introPrefix) {
			h.session.PinnedMsg = msg.ID
		}
		return nil
	}

	if !strings.HasPrefix(msg.MessagePlain, "!") {
		return nil
	}
	fields := strings.Fields(msg.MessagePlain)
	args := fields[1:]

	switch fields[0] {
	case "!lock":
		return h.exLock(ctx, msg)
	case "!unlock":
		return h.exUnlock(ctx, msg)
	case "!seed":
		return h.exSeed(ctx, args, msg, true, false)
	case "!seeddev":
		return h.exSeed(ctx, args, msg, true, true)
	case "!spoilerseed":
		return h.exSeed(ctx, args, msg, false, false)
	case "!presets":
		return h.exPresets(ctx, false)
	case "!presetsdev":
		return h.exPresets(ctx, true)
	case "!fpa":
		return h.exFPA(ctx, args, msg)
	}
	return nil
}

// shouldStopLocked reports whether a cooperating bot owns this race's
// goal, in which case the handler stays fully inert.
func (h *Handler) shouldStopLocked(ctx context.Context) bool {
	goal := h.race.Goal
	if goal.Custom {
		if h.delegator == nil {
			return false
		}
		handled, err := h.delegator.HandlesCustomGoal(ctx, goal.Name)
		if err != nil {
			h.log.Warn().Err(err).Str("goal", goal.Name).Msg("Delegation check failed")
			return false
		}
		return handled
	}
	// Fixed goals run by cooperating bots.
	return goal.Name == "Random settings league" || goal.Name == "Triforce Blitz"
}

func (h *Handler) exLock(ctx context.Context, msg racetime.ChatMessage) error {
	if !racetime.CanMonitor(msg) {
		return h.sendf(ctx, "Sorry %s, only race monitors can do that.", replyName(msg))
	}
	h.session.Locked = true
	return h.send(ctx, "Lock initiated. I will now only roll seeds for race monitors.")
}

func (h *Handler) exUnlock(ctx context.Context, msg racetime.ChatMessage) error {
	if !racetime.CanMonitor(msg) {
		return h.sendf(ctx, "Sorry %s, only race monitors can do that.", replyName(msg))
	}
	if h.race.InProgress() {
		return nil
	}
	h.session.Locked = false
	return h.send(ctx, "Lock released. Anyone may now roll a seed.")
}

func (h *Handler) exSeed(ctx context.Context, args []string, msg racetime.ChatMessage, encrypt, dev bool) error {
	if h.race.InProgress() {
		return nil
	}

	replyTo := msg.User.Name
	if h.session.Locked && !racetime.CanMonitor(msg) {
		return h.sendf(ctx, "Sorry %s, seed rolling is locked. Only race monitors may roll a seed for this race.", replyName(msg))
	}
	if h.session.SeedID != "" && !racetime.CanModerate(msg) {
		return h.send(ctx, "Well excuuuuuse me princess, but I already rolled a seed. Don't get greedy!")
	}

	preset := defaultPreset
	if len(args) > 0 {
		preset = args[0]
	}
	return h.roll(ctx, preset, encrypt, dev, false, replyTo)
}

func (h *Handler) exPresets(ctx context.Context, dev bool) error {
	if h.race.InProgress() {
		return nil
	}

	branchKey := zsr.StableKey
	if dev {
		branchKey = devBranchKey
	}
	presets := h.seeds.Presets(branchKey)

	if err := h.send(ctx, "Available presets:"); err != nil {
		return err
	}
	for _, alias := range sortedAliases(presets) {
		if err := h.sendf(ctx, "%s – %s", alias, presets[alias].FullName); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) exFPA(ctx context.Context, args []string, msg racetime.ChatMessage) error {
	var resp string
	switch {
	case len(args) == 1 && (args[0] == "on" || args[0] == "off"):
		if !racetime.CanMonitor(msg) {
			resp = fmt.Sprintf("Sorry %s, only race monitors can do that.", replyName(msg))
		} else if args[0] == "on" {
			if h.session.FPA {
				resp = "Fair play agreement is already activated."
			} else {
				h.session.FPA = true
				resp = "Fair play agreement is now active. @entrants may " +
					"use the !fpa command during the race to notify of a " +
					"crash. Race monitors should enable notifications " +
					"using the bell 🔔 icon below chat."
			}
		} else {
			if !h.session.FPA {
				resp = "Fair play agreement is not active."
			} else {
				h.session.FPA = false
				resp = "Fair play agreement is now deactivated."
			}
		}
	case h.session.FPA:
		if h.race.InProgress() {
			resp = fmt.Sprintf("@everyone FPA has been invoked by @%s.", replyName(msg))
		} else {
			resp = "FPA cannot be invoked before the race starts."
		}
	default:
		resp = "Fair play agreement is not active. Race monitors may enable FPA for this race with !fpa on"
	}
	return h.send(ctx, resp)
}

// roll generates a seed and starts the status poll loop for it.
func (h *Handler) roll(ctx context.Context, preset string, encrypt, dev, password bool, replyTo string) error {
	branchKey := zsr.StableKey
	listCmd := "!presets"
	if dev {
		branchKey = devBranchKey
		listCmd = "!presetsdev"
	}

	// Pre-validate the alias when a catalog is loaded; with an empty
	// catalog the roll itself fetches one and revalidates.
	if _, ok := h.seeds.Resolve(branchKey, preset); !ok && len(h.seeds.Presets(branchKey)) > 0 {
		return h.sendf(ctx, "Sorry %s, I don't recognise that preset. Use %s to see what is available.", orFriend(replyTo), listCmd)
	}

	rollLog := h.log.With().
		Str("roll_id", uuid.NewString()).
		Str("branch", branchKey).
		Str("preset", preset).
		Logger()

	seedID, seedURL, err := h.seeds.RollSeed(ctx, branchKey, preset, encrypt, password)
	if err != nil {
		rollLog.Error().Err(err).Msg("Seed roll failed")
		switch {
		case errors.Is(err, zsr.ErrUnknownPreset):
			// The alias was validated above; the catalog may have been
			// replaced by a version-change reload in between.
			return h.sendf(ctx, "Sorry %s, I don't recognise that preset. Use %s to see what is available.", orFriend(replyTo), listCmd)
		case errors.Is(err, zsr.ErrSourceUnavailable):
			return h.sendf(ctx, "Sorry %s, I couldn't reach the randomizer just now. Please try again.", orFriend(replyTo))
		default:
			return h.sendf(ctx, "Sorry %s, something went wrong while rolling your seed. Please try again.", orFriend(replyTo))
		}
	}
	rollLog.Info().Str("seed_id", seedID).Msg("Seed rolled")

	who := replyTo
	if who == "" {
		who = "Okay"
	}
	if err := h.sendf(ctx, "%s, here is your seed: %s", who, seedURL); err != nil {
		rollLog.Warn().Err(err).Msg("Failed to announce seed URL")
	}
	if err := h.room.SetInfo(ctx, seedURL); err != nil {
		rollLog.Warn().Err(err).Msg("Failed to set race info")
	}
	if h.session.PinnedMsg != "" {
		if err := h.room.UnpinMessage(ctx, h.session.PinnedMsg); err != nil {
			rollLog.Warn().Err(err).Msg("Failed to unpin intro message")
		}
		h.session.PinnedMsg = ""
	}

	h.session.SeedID = seedID
	h.session.StatusChecks = 0
	h.session.PasswordRoll = password

	go h.pollSeed(context.Background(), seedID, rollLog)
	return nil
}

// pollSeed checks the seed's status on a fixed interval until it is ready,
// failed, or the check ceiling is reached. The captured seed id is checked
// against the session before every step so a chain superseded by a newer
// roll cannot clobber it.
func (h *Handler) pollSeed(ctx context.Context, seedID string, logger zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(h.pollInterval):
		}

		if !h.currentSeed(seedID) {
			return
		}

		status, err := h.seeds.GetStatus(ctx, seedID)

		h.mu.Lock()
		if h.session.SeedID != seedID {
			h.mu.Unlock()
			return
		}
		switch {
		case err == nil && status == 0:
			h.session.StatusChecks++
			ceiling := h.session.StatusChecks >= h.maxStatusChecks
			h.mu.Unlock()
			if ceiling {
				// Deliberate soft-failure path: stop polling but leave
				// the seed id in place. Only a monitor re-roll recovers.
				logger.Warn().Str("seed_id", seedID).Msg("Giving up on status checks; seed still generating")
				return
			}
		case err == nil && status == 1:
			password := h.session.PasswordRoll
			h.mu.Unlock()
			h.announceSeed(ctx, seedID, password, logger)
			return
		default:
			// Terminal failure code, unknown status or a failed status
			// check: fail closed.
			h.session.SeedID = ""
			h.mu.Unlock()
			if err != nil {
				logger.Error().Err(err).Str("seed_id", seedID).Msg("Seed status check failed")
			} else {
				logger.Error().Int("status", status).Str("seed_id", seedID).Msg("Seed failed to generate")
			}
			if err := h.send(ctx, "Sorry, but it looks like the seed failed to generate. Use !seed to try again."); err != nil {
				logger.Warn().Err(err).Msg("Failed to announce seed failure")
			}
			return
		}
	}
}

// announceSeed publishes the ready seed's hash as the race info, and for
// password-locked rolls announces the password best-effort.
func (h *Handler) announceSeed(ctx context.Context, seedID string, password bool, logger zerolog.Logger) {
	if !h.currentSeed(seedID) {
		return
	}

	info := h.seeds.SeedURL(seedID)
	hash, err := h.seeds.GetHash(ctx, seedID)
	if err != nil {
		logger.Warn().Err(err).Str("seed_id", seedID).Msg("Could not fetch seed hash")
	} else if hash != "" {
		info = hash + "\n" + info
	}
	if err := h.room.SetInfo(ctx, info); err != nil {
		logger.Warn().Err(err).Msg("Failed to set race info")
	}

	if password {
		if pw, ok := h.seeds.GetPassword(ctx, seedID); ok {
			if err := h.sendf(ctx, "This seed is password locked. The password is: %s", pw); err != nil {
				logger.Warn().Err(err).Msg("Failed to announce seed password")
			}
		} else {
			logger.Warn().Str("seed_id", seedID).Msg("Could not fetch seed password")
		}
	}
}

func (h *Handler) currentSeed(seedID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session.SeedID == seedID
}

func (h *Handler) send(ctx context.Context, text string) error {
	return h.room.SendMessage(ctx, text, nil)
}

func (h *Handler) sendf(ctx context.Context, format string, args ...interface{}) error {
	return h.send(ctx, fmt.Sprintf(format, args...))
}

func replyName(msg racetime.ChatMessage) string {
	return orFriend(msg.User.Name)
}

func orFriend(name string) string {
	if name == "" {
		return "friend"
	}
	return name
}

func sortedAliases(presets map[string]zsr.Preset) []string {
	aliases := make([]string, 0, len(presets))
	for alias := range presets {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}
