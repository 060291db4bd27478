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

package compile

// Opcode is the high nibble of a bytecode.
type Opcode byte

const (
	Extended        Opcode = 0
	PushInstance    Opcode = 1
	PushArgument    Opcode = 2
	PushTemporary   Opcode = 3
	PushLiteral     Opcode = 4
	PushConstant    Opcode = 5
	AssignInstance  Opcode = 6
	AssignTemporary Opcode = 7
	MarkArguments   Opcode = 8
	SendMessage     Opcode = 9
	SendUnary       Opcode = 10
	SendBinary      Opcode = 11
	DoPrimitive     Opcode = 13
	DoSpecial       Opcode = 15
)

// Small-constant ids for PushConstant.
const (
	ConstZero     = 0
	ConstOne      = 1
	ConstTwo      = 2
	ConstMinusOne = 3
	ConstContext  = 4
	ConstNil      = 5
	ConstTrue     = 6
	ConstFalse    = 7
)

// DoSpecial sub-ops.
const (
	SelfReturn    = 1
	StackReturn   = 2
	Duplicate     = 4
	PopTop        = 5
	Branch        = 6
	BranchIfTrue  = 7
	BranchIfFalse = 8
	AndBranch     = 9
	OrBranch      = 10
	SendToSuper   = 11

	// BlockReturn marks a block falling off the end of its body without an explicit
	// ^, which must answer to the block's immediate caller (whoever sent
	// #value) rather than performing StackReturn's non-local unwind to
	// the block's home method. Without this distinction the two cases
	// are bytecode-indistinguishable once a block is compiled inline.
	BlockReturn = 12
)

// Op extracts the high-nibble opcode from a bytecode byte.
func Op(b byte) Opcode { return Opcode(b >> 4) }

// Operand extracts the low-nibble operand from a bytecode byte.
func Operand(b byte) int { return int(b & 0x0f) }
