// Package hosts loads reflector host lists into the gateway cache, from
// local files at startup and from periodic downloads.
package hosts

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dbehnke/dstar-gateway/pkg/dstar"
	"github.com/dbehnke/dstar-gateway/pkg/gateway"
	"github.com/dbehnke/dstar-gateway/pkg/logger"
)

// Host is one line of a host file
type Host struct {
	Entry gateway.RepeaterEntry
	// Locked entries are never replaced by a download
	Locked bool
}

// Store receives parsed hosts, see cache.Cache
type Store interface {
	AddHost(e gateway.RepeaterEntry, locked bool) error
	ReplaceHosts(p dstar.Protocol, entries []gateway.RepeaterEntry) error
}

// FileName returns the conventional host file name for a protocol
func FileName(p dstar.Protocol) string {
	switch p {
	case dstar.ProtocolDExtra:
		return "DExtra_Hosts.txt"
	case dstar.ProtocolDPlus:
		return "DPlus_Hosts.txt"
	case dstar.ProtocolDCS:
		return "DCS_Hosts.txt"
	default:
		return ""
	}
}

// Parse reads a host file: one "NAME ADDRESS [L]" entry per line, with #
// comments. Malformed lines are skipped.
func Parse(r io.Reader, p dstar.Protocol) ([]Host, error) {
	var hosts []Host
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		name := strings.ToUpper(fields[0])
		if len(name) > dstar.LongCallsignLength-1 {
			continue
		}

		hosts = append(hosts, Host{
			Entry: gateway.RepeaterEntry{
				Repeater: dstar.PadCallsign(name),
				Gateway:  dstar.GatewayCallsign(name),
				Address:  fields[1],
				Protocol: p,
			},
			Locked: len(fields) > 2 && strings.EqualFold(fields[2], "L"),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read host list: %w", err)
	}
	return hosts, nil
}

// Apply replaces the downloaded hosts of p in store and pins the locked
// ones.
func Apply(store Store, p dstar.Protocol, hosts []Host) error {
	entries := make([]gateway.RepeaterEntry, 0, len(hosts))
	for _, h := range hosts {
		if !h.Locked {
			entries = append(entries, h.Entry)
		}
	}
	if err := store.ReplaceHosts(p, entries); err != nil {
		return err
	}

	for _, h := range hosts {
		if !h.Locked {
			continue
		}
		if err := store.AddHost(h.Entry, true); err != nil {
			return err
		}
	}
	return nil
}

// LoadDirectory loads every known host file found in dir. Missing files
// are not an error.
func LoadDirectory(store Store, dir string, log *logger.Logger) error {
	for _, p := range []dstar.Protocol{dstar.ProtocolDExtra, dstar.ProtocolDPlus, dstar.ProtocolDCS} {
		path := filepath.Join(dir, FileName(p))

		f, err := os.Open(path)
		if os.IsNotExist(err) {
			log.Debug("No host file", logger.String("path", path))
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}

		hosts, err := Parse(f, p)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		if err := Apply(store, p, hosts); err != nil {
			return fmt.Errorf("failed to store %s hosts: %w", p, err)
		}
		log.Info("Loaded host file", logger.String("path", path), logger.Int("hosts", len(hosts)))
	}
	return nil
}
