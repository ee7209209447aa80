package panel

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ballbeam-lab/ballbeam"
)

// watchInterval is the telemetry polling period while watching or logging.
const watchInterval = 100 * time.Millisecond

// LogHeader is the column layout of telemetry CSV logs. The analysis tools
// consume the same layout.
var LogHeader = []string{"time_ms", "setpoint_cm", "position_cm", "output"}

// Panel runs the interactive supervisory session.
type Panel struct {
	client *Client
	out    io.Writer

	logFile *os.File
	logCSV  *csv.Writer
	started time.Time
}

// NewPanel wraps a client for interactive use.
func NewPanel(client *Client, out io.Writer) *Panel {
	return &Panel{client: client, out: out, started: time.Now()}
}

// Run reads commands line by line until EOF or quit. Command errors are
// reported and the session continues.
func (p *Panel) Run(in io.Reader) error {
	defer p.closeLog()

	fmt.Fprintln(p.out, "ball-and-beam panel. 'help' lists commands.")
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		if err := p.dispatch(fields[0], fields[1:]); err != nil {
			fmt.Fprintln(p.out, "error:", err)
		}
	}
	return scanner.Err()
}

func (p *Panel) dispatch(cmd string, args []string) error {
	switch cmd {
	case "help":
		fmt.Fprint(p.out, `on                 activate the control loop
off                deactivate (beam holds its last angle)
mode none|pid|lead select the compensator
sp <cm>            set the ball position setpoint
kp|ki|kd|k <val>   tune a gain
gains              show the gains currently on the bus
status             show activation and telemetry
watch [seconds]    stream telemetry (default 10s)
log <file>         append watched telemetry to a CSV file
quit               leave the panel
`)
		return nil

	case "on":
		return p.client.SetActive(true)
	case "off":
		return p.client.SetActive(false)

	case "mode":
		if len(args) != 1 {
			return fmt.Errorf("usage: mode none|pid|lead")
		}
		var sel ballbeam.Controller
		switch args[0] {
		case "none":
			sel = ballbeam.ControllerNone
		case "pid":
			sel = ballbeam.ControllerPID
		case "lead":
			sel = ballbeam.ControllerLead
		default:
			return fmt.Errorf("unknown mode %q", args[0])
		}
		return p.client.SetController(sel)

	case "sp":
		v, err := parseValue(args, "sp <cm>")
		if err != nil {
			return err
		}
		return p.client.SetSetpoint(v)

	case "kp", "ki", "kd", "k":
		v, err := parseValue(args, cmd+" <value>")
		if err != nil {
			return err
		}
		return p.client.WriteHreg(gainRegister(cmd), ballbeam.ToFixed(v))

	case "gains":
		regs, err := p.client.ReadHregs(ballbeam.HregKp, 4)
		if err != nil {
			return err
		}
		fmt.Fprintf(p.out, "kp=%.2f ki=%.2f kd=%.2f k=%.2f\n",
			ballbeam.FromFixed(regs[0]), ballbeam.FromFixed(regs[1]),
			ballbeam.FromFixed(regs[2]), ballbeam.FromFixed(regs[3]))
		return nil

	case "status":
		active, err := p.client.Active()
		if err != nil {
			return err
		}
		tel, err := p.client.Telemetry()
		if err != nil {
			return err
		}
		fmt.Fprintf(p.out, "active=%t position=%.2fcm setpoint=%.2fcm output=%.2f\n",
			active, tel.PositionCM, tel.SetpointCM, tel.Output)
		return nil

	case "watch":
		seconds := 10
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("usage: watch [seconds]")
			}
			seconds = n
		}
		return p.watch(time.Duration(seconds) * time.Second)

	case "log":
		if len(args) != 1 {
			return fmt.Errorf("usage: log <file>")
		}
		return p.openLog(args[0])

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// watch polls telemetry for the given duration, printing each snapshot and
// appending to the CSV log when one is open.
func (p *Panel) watch(d time.Duration) error {
	end := time.Now().Add(d)
	for time.Now().Before(end) {
		tel, err := p.client.Telemetry()
		if err != nil {
			return err
		}
		fmt.Fprintf(p.out, "position=%.2fcm setpoint=%.2fcm output=%.2f\n",
			tel.PositionCM, tel.SetpointCM, tel.Output)
		if err := p.logRow(tel); err != nil {
			return err
		}
		time.Sleep(watchInterval)
	}
	return nil
}

func (p *Panel) openLog(path string) error {
	p.closeLog()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("opening log: %w", err)
	}

	p.logFile = f
	p.logCSV = csv.NewWriter(f)
	if info.Size() == 0 {
		if err := p.logCSV.Write(LogHeader); err != nil {
			return err
		}
		p.logCSV.Flush()
	}
	fmt.Fprintln(p.out, "logging telemetry to", path)
	return nil
}

func (p *Panel) logRow(tel Telemetry) error {
	if p.logCSV == nil {
		return nil
	}
	row := []string{
		strconv.FormatInt(time.Since(p.started).Milliseconds(), 10),
		strconv.FormatFloat(tel.SetpointCM, 'f', 2, 64),
		strconv.FormatFloat(tel.PositionCM, 'f', 2, 64),
		strconv.FormatFloat(tel.Output, 'f', 2, 64),
	}
	if err := p.logCSV.Write(row); err != nil {
		return err
	}
	p.logCSV.Flush()
	return p.logCSV.Error()
}

func (p *Panel) closeLog() {
	if p.logCSV != nil {
		p.logCSV.Flush()
		p.logCSV = nil
	}
	if p.logFile != nil {
		p.logFile.Close()
		p.logFile = nil
	}
}

func gainRegister(name string) uint16 {
	switch name {
	case "kp":
		return ballbeam.HregKp
	case "ki":
		return ballbeam.HregKi
	case "kd":
		return ballbeam.HregKd
	default:
		return ballbeam.HregLeadK
	}
}

func parseValue(args []string, usage string) (float64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", args[0])
	}
	return v, nil
}
