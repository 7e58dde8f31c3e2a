package experiment

import (
	"errors"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/saxstat/gopstat/pkg/config"
	"github.com/saxstat/gopstat/pkg/transport"
)

const calibrationWait = time.Second

// Calibrate measures the zero-current offset: it requests calibration
// readings from the device with no sample connected, converts each valid
// ADC code at zero applied potential, and returns the mean current in µA.
// The caller stores the result as CalibrationConfig.OffsetCurrent.
func Calibrate(conn transport.Conn, calib config.CalibrationConfig) (float64, error) {
	if err := conn.FlushInput(); err != nil {
		return 0, err
	}
	if err := conn.SendLine("CALIBRATE"); err != nil {
		return 0, err
	}

	var currents []float64
	deadline := time.After(calibrationWait)
	for {
		select {
		case ev, ok := <-conn.Events():
			if !ok {
				return 0, transport.ErrNotConnected
			}
			if ev.Kind != transport.DataReceived {
				continue
			}
			code, err := strconv.ParseFloat(ev.Line.Text, 64)
			if err != nil || code < 0 || code > calib.ADCFullScale {
				continue
			}
			vout := code / calib.ADCFullScale * calib.ADCRefVoltage
			currents = append(currents, 1e6*(2*calib.RefVoltage-vout)/calib.TIAResistance)
		case <-deadline:
			if len(currents) == 0 {
				return 0, errors.New("no valid readings received for calibration")
			}
			return stat.Mean(currents, nil), nil
		}
	}
}
