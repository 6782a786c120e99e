package models

import "fmt"

/**
 * HostEntry is one logical line of the managed hosts block
 * @property {string} id - Merge key, "{ip} {hostname}"
 * @property {bool} enabled - Disabled entries are written as "# ip host"
 * @description
 * - Entries are not persisted on their own; they are materialised from
 *   the managed block of the OS hosts file on every read
 */
type HostEntry struct {
	ID       string `json:"id"`
	IP       string `json:"ip"`
	Hostname string `json:"hostname"`
	Comment  string `json:"comment,omitempty"`
	Enabled  bool   `json:"enabled"`
}

func HostEntryID(ip, hostname string) string {
	return fmt.Sprintf("%s %s", ip, hostname)
}
