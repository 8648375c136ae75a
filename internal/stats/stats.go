package stats

import (
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Service caches bot-wide counts recomputed on a fixed interval from the
// live connection. The counts are derived state and never persisted.
type Service struct {
	mu      sync.RWMutex
	guilds  int
	users   int
	started time.Time
}

type Counts struct {
	Guilds int
	Users  int
	Uptime time.Duration
}

type SystemInfo struct {
	Platform      string
	KernelVersion string
	GoVersion     string
	CPUCount      int
	CPUPercent    float64
	MemUsedMB     uint64
	MemTotalMB    uint64
	MemPercent    float64
	Goroutines    int
}

func New() *Service {
	return &Service{started: time.Now()}
}

func (s *Service) Update(guilds, users int) {
	s.mu.Lock()
	s.guilds = guilds
	s.users = users
	s.mu.Unlock()
}

func (s *Service) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		Guilds: s.guilds,
		Users:  s.users,
		Uptime: time.Since(s.started),
	}
}

// System collects host-level metrics. Collection failures leave the
// affected fields zeroed rather than failing the whole report.
func (s *Service) System() SystemInfo {
	info := SystemInfo{
		GoVersion:  runtime.Version(),
		Goroutines: runtime.NumGoroutine(),
	}

	if count, err := cpu.Counts(true); err == nil {
		info.CPUCount = count
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		info.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemUsedMB = vm.Used / 1024 / 1024
		info.MemTotalMB = vm.Total / 1024 / 1024
		info.MemPercent = vm.UsedPercent
	}
	if hostInfo, err := host.Info(); err == nil {
		info.Platform = hostInfo.Platform + " " + hostInfo.PlatformVersion
		info.KernelVersion = hostInfo.KernelVersion
	}
	return info
}
