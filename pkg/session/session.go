// Package session implements the Session Orchestrator: it prepares a
// programming session against one target (parsing and paging every
// enabled image, handshaking with the device) and then drives the
// stage machine one do_step() at a time.
package session

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/serprog/serprog/pkg/client"
	"github.com/serprog/serprog/pkg/device"
	"github.com/serprog/serprog/pkg/ihex"
	"github.com/serprog/serprog/pkg/progress"
	"github.com/serprog/serprog/pkg/transport"
)

const (
	pageSize = 512
	fillByte = 0xFF
)

// Stage names one leg of the stage machine.
type Stage string

const (
	StageFlashProg    Stage = "FLASH_PROG"
	StageExtFlashProg Stage = "EXT_FLASH_PROG"
	StageEepromProg   Stage = "EEPROM_PROG"
	StageExtFlashBoot Stage = "EXT_FLASH_BOOT"
	StageEnd          Stage = "END"
)

// StageFailureError reports a nonzero status byte from the target
// during a stage action: the command succeeded at the transport level
// but the target itself rejected it.
type StageFailureError struct {
	Stage   Stage
	Command string
}

func (e *StageFailureError) Error() string {
	return fmt.Sprintf("session: %s rejected %s", e.Stage, e.Command)
}

// Options are the Orchestrator's construction inputs: the requested
// device id (device.Auto for discovery), which images are enabled by
// virtue of a non-empty path, and whether to run the external-flash
// boot stage.
type Options struct {
	DeviceID     uint8
	FlashPath    string
	ExtFlashPath string
	EepromPath   string
	ExtFlashBoot bool
}

type stageState struct {
	name    Stage
	pages   []ihex.Page
	cursor  int
	entered bool
}

// Session owns a prepared, ready-to-run programming transaction. No
// bytes are written to the target until New returns successfully.
type Session struct {
	client     *client.Client
	device     device.Spec
	sessionID  uuid.UUID
	reporter   progress.Reporter
	stages     []*stageState
	stageIdx   int
	curStep    int
	totalSteps int
	estimate   float64
	now        func() time.Time
}

// New prepares a session: validates the device id, parses and pages
// every enabled image, handshakes with the target, reconciles the
// detected device id, and builds the stage iterator. reporter may be
// nil, in which case progress events are discarded.
func New(t transport.Transport, clk transport.Clock, reporter progress.Reporter, opts Options) (*Session, error) {
	if reporter == nil {
		reporter = progress.NoopReporter{}
	}

	requested, err := device.ByID(opts.DeviceID)
	if err != nil {
		return nil, err
	}

	flashPages, err := loadPages(opts.FlashPath)
	if err != nil {
		return nil, classifyImageError(opts.FlashPath, err, false)
	}
	extFlashPages, err := loadPages(opts.ExtFlashPath)
	if err != nil {
		return nil, classifyImageError(opts.ExtFlashPath, err, false)
	}
	eepromPages, err := loadPages(opts.EepromPath)
	if err != nil {
		return nil, classifyImageError(opts.EepromPath, err, true)
	}

	cl := client.New(t, clk)

	ok, protoVersion, err := cl.ChkProtocol()
	if err != nil {
		return nil, err
	}
	if !ok || protoVersion != 1 {
		return nil, &ProtocolMismatchError{Got: protoVersion}
	}

	ok, detected, err := cl.ChkDevice()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &StageFailureError{Stage: "HANDSHAKE", Command: "CHK_DEVICE"}
	}

	var resolved device.Spec
	if requested.ProtocolVersion == device.Auto {
		resolved, err = device.ByID(detected)
		if err != nil {
			return nil, err
		}
	} else {
		if detected != opts.DeviceID {
			return nil, &CheckDeviceError{Requested: opts.DeviceID, Detected: detected}
		}
		resolved = requested
	}

	var stages []*stageState
	if opts.FlashPath != "" {
		stages = append(stages, &stageState{name: StageFlashProg, pages: flashPages})
	}
	if opts.ExtFlashPath != "" {
		stages = append(stages, &stageState{name: StageExtFlashProg, pages: extFlashPages})
	}
	if opts.EepromPath != "" {
		stages = append(stages, &stageState{name: StageEepromProg, pages: eepromPages})
	}
	if opts.ExtFlashBoot {
		stages = append(stages, &stageState{name: StageExtFlashBoot})
	}
	stages = append(stages, &stageState{name: StageEnd})

	s := &Session{
		client:     cl,
		device:     resolved,
		sessionID:  uuid.New(),
		reporter:   reporter,
		stages:     stages,
		totalSteps: len(flashPages) + len(extFlashPages) + len(eepromPages) + 1,
		estimate:   resolved.EstimateSeconds(len(flashPages), len(eepromPages), len(extFlashPages)),
		now:        time.Now,
	}
	return s, nil
}

// loadPages parses, pads, and pages one image file. An empty path
// disables the image entirely and returns no pages, no error.
func loadPages(path string) ([]ihex.Page, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, &FileNotFoundError{Path: path}
	}
	sections, err := ihex.Parse(path)
	if err != nil {
		return nil, err
	}
	padded := ihex.PadToPage(sections, pageSize, fillByte)
	return ihex.SplitPages(padded, pageSize), nil
}

func classifyImageError(path string, err error, eeprom bool) error {
	if _, ok := err.(*FileNotFoundError); ok {
		return err
	}
	if eeprom {
		return &EepromIsNotIhexError{Path: path, Err: err}
	}
	return &FlashIsNotIhexError{Path: path, Err: err}
}

// Device returns the resolved device catalog entry for this session.
func (s *Session) Device() device.Spec { return s.device }

// SessionID returns the correlation id minted for this session.
func (s *Session) SessionID() uuid.UUID { return s.sessionID }

// TotalSteps returns the number of counted steps in the session: one per
// flash, ext-flash and EEPROM page plus the final END step. The
// EXT_FLASH_BOOT stage, when enabled, takes one more Step call that does
// not advance CurStep.
func (s *Session) TotalSteps() int { return s.totalSteps }

// CurStep returns the number of steps completed so far.
func (s *Session) CurStep() int { return s.curStep }

// EstimatedSeconds returns the time estimate computed at construction.
func (s *Session) EstimatedSeconds() float64 { return s.estimate }

// Done reports whether the stage iterator has been exhausted.
func (s *Session) Done() bool { return s.stageIdx >= len(s.stages) }

// Step advances exactly one unit of work and reports progress. It must
// not be called again once Done() is true.
func (s *Session) Step() error {
	if s.Done() {
		return fmt.Errorf("session: Step called after completion")
	}
	st := s.stages[s.stageIdx]

	var detail string
	var err error
	switch st.name {
	case StageFlashProg:
		detail, err = s.stepFlash(st)
	case StageExtFlashProg:
		detail, err = s.stepExtFlash(st)
	case StageEepromProg:
		detail, err = s.stepEeprom(st)
	case StageExtFlashBoot:
		detail, err = s.stepExtFlashBoot(st)
	case StageEnd:
		detail, err = s.stepEnd(st)
	}
	if err != nil {
		return err
	}

	s.reporter.Report(progress.Progress{
		SessionID:  s.sessionID.String(),
		Stage:      string(st.name),
		CurStep:    s.curStep,
		TotalSteps: s.totalSteps,
		DeviceName: s.device.Name,
		Detail:     detail,
	})
	return nil
}

func (s *Session) stepFlash(st *stageState) (string, error) {
	if st.cursor == 0 {
		ok, err := s.client.FlashEraseAll()
		if err != nil {
			return "", err
		}
		if !ok {
			return "", &StageFailureError{Stage: st.name, Command: "FLASH_ERASE_ALL"}
		}
	}
	page := st.pages[st.cursor]
	ok, err := s.client.FlashWrite(page.Address, page.Data)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &StageFailureError{Stage: st.name, Command: "FLASH_WRITE"}
	}
	st.cursor++
	s.curStep++
	detail := fmt.Sprintf("flash page %d/%d at 0x%08x", st.cursor, len(st.pages), page.Address)
	if st.cursor == len(st.pages) {
		s.stageIdx++
	}
	return detail, nil
}

func (s *Session) stepExtFlash(st *stageState) (string, error) {
	if st.cursor == 0 {
		ok, err := s.client.ExtFlashFopen()
		if err != nil {
			return "", err
		}
		if !ok {
			return "", &StageFailureError{Stage: st.name, Command: "EXT_FLASH_FOPEN"}
		}
	}
	page := st.pages[st.cursor]
	ok, err := s.client.ExtFlashWrite(page.Address, page.Data)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &StageFailureError{Stage: st.name, Command: "EXT_FLASH_WRITE"}
	}
	st.cursor++
	s.curStep++
	detail := fmt.Sprintf("ext flash page %d/%d at 0x%08x", st.cursor, len(st.pages), page.Address)
	if st.cursor == len(st.pages) {
		ok, err := s.client.ExtFlashClose(timestamp(s.now()))
		if err != nil {
			return "", err
		}
		if !ok {
			return "", &StageFailureError{Stage: st.name, Command: "EXT_FLASH_FCLOSE"}
		}
		s.stageIdx++
	}
	return detail, nil
}

func (s *Session) stepEeprom(st *stageState) (string, error) {
	page := st.pages[st.cursor]
	ok, _, err := s.client.EepromWrite(page.Data)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &StageFailureError{Stage: st.name, Command: "EEPROM_WRITE"}
	}
	st.cursor++
	s.curStep++
	detail := fmt.Sprintf("eeprom page %d/%d", st.cursor, len(st.pages))
	if st.cursor == len(st.pages) {
		s.stageIdx++
	}
	return detail, nil
}

func (s *Session) stepExtFlashBoot(st *stageState) (string, error) {
	ok, err := s.client.ProgExtFlashBoot()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &StageFailureError{Stage: st.name, Command: "PROG_EXT_FLASH_BOOT"}
	}
	s.stageIdx++
	return "copied external flash image into internal flash", nil
}

func (s *Session) stepEnd(st *stageState) (string, error) {
	ok, err := s.client.ProgEnd()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &StageFailureError{Stage: st.name, Command: "PROG_END"}
	}
	st.cursor++
	s.curStep++
	s.stageIdx++
	return "session complete", nil
}

// timestamp builds the 5-byte EXT_FLASH_FCLOSE timestamp: minute,
// hour, day, month, year-2000, in local time.
func timestamp(t time.Time) [5]byte {
	return [5]byte{
		byte(t.Minute()),
		byte(t.Hour()),
		byte(t.Day()),
		byte(t.Month()),
		byte(t.Year() - 2000),
	}
}
