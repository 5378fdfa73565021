// Package tui draws a live receive dashboard: per-channel counters, decode
// and signal gauges, the channel spectrum and the log.
package tui

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/jrwynneiii/zigtuner/config"
	"github.com/jrwynneiii/zigtuner/logging"
	"github.com/jrwynneiii/zigtuner/pipeline"
	"github.com/jrwynneiii/zigtuner/stats"
	"github.com/navidys/tvxwidgets"
	"github.com/rivo/tview"
)

// maxSNR is the SNR in dB drawn as a full gauge.
const maxSNR = 30.0

// MonitorSource exposes receive chain telemetry, normally *pipeline.Receiver.
type MonitorSource interface {
	Monitor() pipeline.Monitor
}

// Run blocks drawing the dashboard until ctx is cancelled or the user quits
// with q or Ctrl-C. Quitting cancels nothing by itself; the caller decides
// what a closed dashboard means.
func Run(ctx context.Context, st *stats.Statistics, mon MonitorSource, active int, conf config.MonitorConf) error {
	app := tview.NewApplication()

	channelData := NewChannelTableData(active)
	totalsData := &TotalsTableData{}
	channelStats := tview.NewTable().SetContent(channelData)
	totalsTable := tview.NewTable().SetContent(totalsData)

	spectrumPlot := tvxwidgets.NewPlot()
	spectrumPlot.SetLineColor([]tcell.Color{tcell.ColorLightSkyBlue})
	spectrumPlot.SetMarker(tvxwidgets.PlotMarkerBraille)
	spectrumPlot.SetBorder(true)
	spectrumPlot.SetTitle("Channel Spectrum")

	snrGauge := tvxwidgets.NewUtilModeGauge()
	snrGauge.SetLabel("Signal to Noise:      ")
	snrGauge.SetLabelColor(tcell.ColorLightSkyBlue)
	snrGauge.SetWarnPercentage(99)
	snrGauge.SetCritPercentage(100)
	snrGauge.SetEmptyColor(tcell.ColorBlack)
	snrGauge.SetBorder(false)

	failGauge := tvxwidgets.NewUtilModeGauge()
	failGauge.SetLabel("Decode Failure Rate:  ")
	failGauge.SetLabelColor(tcell.ColorLightSkyBlue)
	failGauge.SetWarnPercentage(conf.FailureWarnPct)
	failGauge.SetCritPercentage(conf.FailureCritPct)
	failGauge.SetEmptyColor(tcell.ColorBlack)
	failGauge.SetBorder(false)

	gaugeBox := tview.NewFlex()
	gaugeBox.SetDirection(tview.FlexRow)
	gaugeBox.AddItem(snrGauge, 0, 1, false)
	gaugeBox.AddItem(failGauge, 0, 1, false)
	gaugeBox.SetTitle("Signal Stats")
	gaugeBox.SetBorder(true)

	channelStats.SetSelectable(false, false).SetBorder(true).SetTitle("Per-Channel Stats")
	totalsTable.SetSelectable(false, false).SetBorder(false)

	sessionStats := tview.NewFlex().SetDirection(tview.FlexRow)
	sessionStats.AddItem(totalsTable, 0, 1, false)
	sessionStats.SetBorder(true)
	sessionStats.SetTitle("Receiver Status")

	page := tview.NewFlex().SetDirection(tview.FlexColumn)

	leftCol := tview.NewFlex().SetDirection(tview.FlexRow)
	leftCol.AddItem(channelStats, 0, 3, false)
	leftCol.AddItem(sessionStats, 0, 1, false)

	rightCol := tview.NewFlex().SetDirection(tview.FlexRow)
	rightCol.AddItem(gaugeBox, 0, 1, false)
	if conf.SpectrumBins > 0 {
		rightCol.AddItem(spectrumPlot, 0, 3, false)
	}

	if conf.EnableLogOutput {
		logOut := tview.NewTextView().
			SetDynamicColors(true).
			SetRegions(true).
			SetWordWrap(true)
		logOut.SetChangedFunc(func() {
			logOut.ScrollToEnd()
			app.Draw()
		})
		logOut.SetBorder(true).SetTitle("Log Output")
		restore := logging.Redirect(tview.ANSIWriter(logOut))
		defer restore()
		rightCol.AddItem(logOut, 0, 2, false)
	}

	page.AddItem(leftCol, 0, 2, false)
	page.AddItem(rightCol, 0, 5, false)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Rune() == 'q' {
			app.Stop()
			return nil
		}
		return event
	})

	refresh := time.Duration(conf.RefreshMs) * time.Millisecond
	if refresh <= 0 {
		refresh = 500 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		ticker := time.NewTicker(refresh)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				app.Stop()
				return
			case <-ticker.C:
			}

			snap := st.Snapshot()
			perChannel := st.PerChannel()
			var m pipeline.Monitor
			if mon != nil {
				m = mon.Monitor()
			}

			app.QueueUpdateDraw(func() {
				channelData.Update(perChannel)
				totalsData.Snapshot = snap
				totalsData.Monitor = m

				snrGauge.SetValue(snrPercent(m.SNR))
				if snap.Received > 0 {
					failGauge.SetValue(100 - snap.SuccessRate())
				}
				if len(m.Spectrum) > 0 {
					spectrumPlot.SetData([][]float64{m.Spectrum})
				}
			})
		}
	}()

	return app.SetRoot(page, true).EnableMouse(true).Run()
}

func snrPercent(snr float64) float64 {
	switch {
	case snr <= 0:
		return 0
	case snr >= maxSNR:
		return 100
	}
	return snr / maxSNR * 100
}
