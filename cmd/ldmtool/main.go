// Command ldmtool scans Windows LDM dynamic disks and prints their
// reconstructed topology, or emits the device-mapper tables needed to
// activate their volumes.
package main

func main() {
	Execute()
}
