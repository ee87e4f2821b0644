// ops_control.go - Miscellaneous control instructions (WDR's peripheral hook)

package avrcore

// watchdogReset services the WDR instruction: it tells the watchdog
// peripheral (if the device has one) that software has serviced it,
// restarting its timeout window. Devices without a watchdog simply
// ignore WDR, matching real silicon where it's a no-op absent the
// peripheral.
func (c *Core) watchdogReset() {
	if c.Device.Watchdog != nil {
		c.Device.Watchdog.Kick()
	}
}
