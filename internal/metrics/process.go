package metrics

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats - снимок потребления ресурсов процессом симуляции
type ProcessStats struct {
	CPUPercent float64 // Загрузка CPU процессом, %
	RSSMB      float64 // Резидентная память, MB
	HeapMB     float64 // Куча Go, MB
	Goroutines int
	Uptime     time.Duration
}

// ProcessSampler снимает показатели текущего процесса
type ProcessSampler struct {
	startTime time.Time
	proc      *process.Process

	cpu prometheus.Gauge
	rss prometheus.Gauge
}

// NewProcessSampler создаёт сэмплер и регистрирует его gauge'ы в reg (nil - без регистрации)
func NewProcessSampler(reg prometheus.Registerer) (*ProcessSampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("процесс %d: %w", os.Getpid(), err)
	}

	s := &ProcessSampler{
		startTime: time.Now(),
		proc:      proc,
		cpu: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tileworld",
			Name:      "process_cpu_percent",
			Help:      "Загрузка CPU процессом симуляции, %.",
		}),
		rss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tileworld",
			Name:      "process_rss_megabytes",
			Help:      "Резидентная память процесса симуляции, MB.",
		}),
	}
	if reg != nil {
		if err := reg.Register(s.cpu); err != nil {
			return nil, err
		}
		if err := reg.Register(s.rss); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Sample снимает показатели и обновляет gauge'ы
func (s *ProcessSampler) Sample() (ProcessStats, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := ProcessStats{
		HeapMB:     float64(m.HeapAlloc) / 1024 / 1024,
		Goroutines: runtime.NumGoroutine(),
		Uptime:     time.Since(s.startTime),
	}

	cpuPercent, err := s.proc.CPUPercent()
	if err != nil {
		// Если не удалось получить метрику процесса, попробуем системную
		cpuPercents, sysErr := cpu.Percent(100*time.Millisecond, false)
		if sysErr != nil || len(cpuPercents) == 0 {
			return stats, fmt.Errorf("загрузка CPU: %w", err)
		}
		cpuPercent = cpuPercents[0]
	}
	stats.CPUPercent = cpuPercent

	mem, err := s.proc.MemoryInfo()
	if err != nil {
		return stats, fmt.Errorf("память процесса: %w", err)
	}
	stats.RSSMB = float64(mem.RSS) / 1024 / 1024

	s.cpu.Set(stats.CPUPercent)
	s.rss.Set(stats.RSSMB)
	return stats, nil
}
