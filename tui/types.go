package tui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/jrwynneiii/zigtuner/channel"
	"github.com/jrwynneiii/zigtuner/pipeline"
	"github.com/jrwynneiii/zigtuner/stats"
	"github.com/rivo/tview"
)

type Channel struct {
	ID       int
	Freq     float64
	Received int
	Correct  int
}

// ChannelTableData backs the per-channel table. It is only touched from the
// UI goroutine.
type ChannelTableData struct {
	tview.TableContentReadOnly
	channels []Channel
	active   int
}

func NewChannelTableData(active int) *ChannelTableData {
	d := &ChannelTableData{active: active}
	for _, id := range channel.All() {
		freq, _ := channel.FrequencyOf(id)
		d.channels = append(d.channels, Channel{ID: id, Freq: freq})
	}
	return d
}

func (d *ChannelTableData) Update(counts []stats.ChannelCounts) {
	byID := make(map[int]stats.ChannelCounts, len(counts))
	for _, c := range counts {
		byID[c.Channel] = c
	}
	for idx, ch := range d.channels {
		ch.Received = byID[ch.ID].Received
		ch.Correct = byID[ch.ID].Correct
		d.channels[idx] = ch
	}
}

func (d *ChannelTableData) GetRowCount() int {
	return len(d.channels) + 1
}

func (d *ChannelTableData) GetColumnCount() int {
	return 5
}

func (d *ChannelTableData) GetCell(row, column int) *tview.TableCell {
	if row == 0 {
		switch column {
		case 0:
			return tview.NewTableCell("[lightskyblue]Channel ")
		case 1:
			return tview.NewTableCell("[white]Frequency ")
		case 2:
			return tview.NewTableCell("[green]Packets RX'd ")
		case 3:
			return tview.NewTableCell("[green]Correct ")
		case 4:
			return tview.NewTableCell("[red]Failed")
		}
		return tview.NewTableCell("ERROR")
	}

	ch := d.channels[row-1]
	switch column {
	case 0:
		if ch.ID == d.active {
			return tview.NewTableCell(fmt.Sprintf("[yellow]%d *", ch.ID))
		}
		return tview.NewTableCell(fmt.Sprintf("[lightskyblue]%d", ch.ID))
	case 1:
		return tview.NewTableCell(fmt.Sprintf("[white]%.0f MHz", ch.Freq/1e6))
	case 2:
		if ch.Received == 0 {
			return tview.NewTableCell(fmt.Sprintf("[red]%d", ch.Received))
		}
		return tview.NewTableCell(fmt.Sprintf("[green]%d", ch.Received))
	case 3:
		return tview.NewTableCell(fmt.Sprintf("[green]%d", ch.Correct))
	case 4:
		return tview.NewTableCell(fmt.Sprintf("[red]%d", ch.Received-ch.Correct))
	}
	return tview.NewTableCell("ERROR")
}

// TotalsTableData backs the session status table.
type TotalsTableData struct {
	tview.TableContentReadOnly
	Snapshot stats.Snapshot
	Monitor  pipeline.Monitor
}

func (t *TotalsTableData) GetRowCount() int {
	return 5
}

func (t *TotalsTableData) GetColumnCount() int {
	return 2
}

func (t *TotalsTableData) GetCell(row, column int) *tview.TableCell {
	switch row {
	case 0:
		if column == 0 {
			return tview.NewTableCell("Squelch:")
		}

		if !t.Monitor.SquelchEnabled {
			return tview.NewTableCell("off")
		}
		color := tcell.ColorGreen
		state := "open"
		if !t.Monitor.SquelchOpen {
			color = tcell.ColorRed
			state = "closed"
		}
		return tview.NewTableCell(fmt.Sprintf("%s (%.1f dB)", state, t.Monitor.SquelchLevel)).SetTextColor(color)
	case 1:
		if column == 0 {
			return tview.NewTableCell("Total Packets Rx'd:")
		}
		return tview.NewTableCell(fmt.Sprintf("%d", t.Snapshot.Received))
	case 2:
		if column == 0 {
			return tview.NewTableCell("Total Packets Correct:")
		}
		return tview.NewTableCell(fmt.Sprintf("%d", t.Snapshot.Correct))
	case 3:
		if column == 0 {
			return tview.NewTableCell("Samples In / Out:")
		}
		return tview.NewTableCell(fmt.Sprintf("%d / %d", t.Monitor.SamplesIn, t.Monitor.SamplesOut))
	case 4:
		if column == 0 {
			return tview.NewTableCell("Tap Blocks Dropped:")
		}
		return tview.NewTableCell(fmt.Sprintf("%d", t.Monitor.TapDropped))
	}
	return tview.NewTableCell("ERROR")
}
