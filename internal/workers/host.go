package workers

import (
	"bufio"
	"net"
	"os"
	"runtime"
	"strings"
)

// DetectHost gathers the registration details of the local machine. Fields
// that cannot be determined are left empty rather than failing.
func DetectHost() (Info, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return Info{}, err
	}
	info := Info{
		Hostname:  hostname,
		IPAddress: outboundIP(),
		OSType:    osDescription(),
		CPU:       cpuModel(),
		RAMBytes:  totalMemory(),
	}
	if info.CPU == "" {
		info.CPU = runtime.GOARCH
	}
	return info, nil
}

// outboundIP returns the local address the kernel would route external
// traffic from. Dialling UDP sends no packets.
func outboundIP() string {
	conn, err := net.Dial("udp4", "192.0.2.1:9")
	if err != nil {
		return ""
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return ""
}

func cpuModel() string {
	file, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return ""
	}
	defer file.Close()
	return parseCPUModel(bufio.NewScanner(file))
}

func parseCPUModel(scanner *bufio.Scanner) string {
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "model name", "Model", "Hardware":
			if value = strings.TrimSpace(value); value != "" {
				return value
			}
		}
	}
	return ""
}
