package ps

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

const cpuSampleWindow = 50 * time.Millisecond

type Status struct {
	CPU    CPU    `json:"cpu"`
	Memory Memory `json:"memory"`
	Uptime string `json:"uptime"`
}

type CPU struct {
	Percent float64 `json:"percent"`
}

type Memory struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"usedPercent"`
	Human       string  `json:"human"`
}

func CPUStatus() (CPU, error) {
	list, err := cpu.Percent(cpuSampleWindow, false)
	if err != nil {
		return CPU{}, err
	}
	if len(list) == 0 {
		return CPU{}, nil
	}

	return CPU{
		Percent: list[0],
	}, nil
}

func MemoryStatus() (Memory, error) {
	memory, err := mem.VirtualMemory()
	if err != nil {
		return Memory{}, err
	}

	return Memory{
		Total:       memory.Total,
		Used:        memory.Used,
		UsedPercent: memory.UsedPercent,
		Human:       humanize.Bytes(memory.Used) + " / " + humanize.Bytes(memory.Total),
	}, nil
}

// HostStatus samples cpu and memory usage of the kiosk host.
func HostStatus() (Status, error) {
	c, err := CPUStatus()
	if err != nil {
		return Status{}, err
	}
	m, err := MemoryStatus()
	if err != nil {
		return Status{}, err
	}
	var uptime string
	if secs, err := host.Uptime(); err == nil {
		now := time.Now()
		uptime = strings.TrimSpace(humanize.RelTime(now.Add(-time.Duration(secs)*time.Second), now, "", ""))
	}

	return Status{CPU: c, Memory: m, Uptime: uptime}, nil
}
