// Copyright (C) 2026 tinystalk Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package primitive

import (
	"github.com/tinystalk/tinystalk/interp"
	"github.com/tinystalk/tinystalk/oop"
)

// Primitive numbers 150 and up: host/system primitives this implementation has no
// real device to back -- GPIO, display, WiFi, non-volatile storage, HTTP,
// wall-clock time, platform info. Each is named and arity-checked the way
// a real implementation's would be, but answers primitive failure so the
// fallback bytecodes run for code this VM's host cannot satisfy.
const (
	PrimSystemCall    = 150
	PrimTaskSpawn     = 151
	PrimDelayMs       = 152
	PrimDisplayClear  = 153
	PrimDisplayDraw   = 154
	PrimGPIORead      = 155
	PrimGPIOWrite     = 156
	PrimWiFiConnect   = 157
	PrimWiFiStatus    = 158
	PrimClockMillis   = 159
	PrimNVStoreGet    = 160
	PrimNVStoreSet    = 161
	PrimHTTPRequest   = 162
	PrimPlatformName  = 163
)

// stub registers a primitive under name/argc that always fails, so a send
// to it falls through to its Smalltalk-level fallback bytecodes rather
// than crashing the VM. argc<0 disables arity checking.
func stub(t *Table, num int, name string, argc int) {
	t.Register(num, Descriptor{Name: name, Argc: argc, Fn: func(vm *interp.VM, proc *interp.Process, receiver oop.Ref, args []oop.Ref) (oop.Ref, bool) {
		return oop.Nil, false
	}})
}

func registerHostStubs(t *Table) {
	stub(t, PrimSystemCall, "systemCall:withArguments:", 2)
	stub(t, PrimTaskSpawn, "spawnTask:", 1)
	stub(t, PrimDelayMs, "delayMilliseconds:", 1)
	stub(t, PrimDisplayClear, "displayClear", 0)
	stub(t, PrimDisplayDraw, "displayDrawAt:bitmap:", 2)
	stub(t, PrimGPIORead, "gpioRead:", 1)
	stub(t, PrimGPIOWrite, "gpioWrite:value:", 2)
	stub(t, PrimWiFiConnect, "wifiConnect:password:", 2)
	stub(t, PrimWiFiStatus, "wifiStatus", 0)
	stub(t, PrimClockMillis, "clockMilliseconds", 0)
	stub(t, PrimNVStoreGet, "nvStoreAt:", 1)
	stub(t, PrimNVStoreSet, "nvStoreAt:put:", 2)
	stub(t, PrimHTTPRequest, "httpRequest:method:body:", 3)
	stub(t, PrimPlatformName, "platformName", 0)
}
