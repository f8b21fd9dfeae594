package vm_test

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"strings"

	"github.com/charmbracelet/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"go.creack.net/stackvm/asm"
	"go.creack.net/stackvm/assets"
	"go.creack.net/stackvm/op"
	"go.creack.net/stackvm/vm"
)

const stepBound = 100_000

func assemble(src string) *op.Binary {
	GinkgoHelper()
	bin, err := asm.Assemble(src)
	Expect(err).NotTo(HaveOccurred())
	return bin
}

// run executes the source with a step bound, returning the machine and its output.
func run(src string, opts ...vm.Option) (*vm.Machine, string) {
	GinkgoHelper()
	out := &bytes.Buffer{}
	m := vm.New(assemble(src).Code, out, opts...)
	_, err := m.RunContext(context.Background(), stepBound)
	Expect(err).NotTo(HaveOccurred())
	return m, out.String()
}

func expectStack(m *vm.Machine, want ...int64) {
	GinkgoHelper()
	stack := m.Snapshot().Stack
	if len(want) == 0 {
		Expect(stack).To(BeEmpty())
		return
	}
	Expect(stack).To(Equal(vm.Stack(want)))
}

func expectFault(m *vm.Machine, kind vm.FaultKind, addr uint32) {
	GinkgoHelper()
	Expect(m.State()).To(Equal(vm.Faulted))
	Expect(m.Fault()).NotTo(BeNil())
	Expect(m.Fault().Kind).To(Equal(kind))
	Expect(m.Fault().Addr).To(Equal(addr))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

var _ = Describe("Machine", func() {
	Context("Scenarios", func() {
		It("adds and prints", func() {
			out := &bytes.Buffer{}
			res := vm.Execute(assemble("PUSH 2\nPUSH 3\nADD\nOUTPUT-TOP\nHALT"), out)
			Expect(res.State).To(Equal(vm.Halted))
			Expect(res.Err()).NotTo(HaveOccurred())
			Expect(res.Steps).To(Equal(uint64(5)))
			Expect(out.String()).To(Equal("5\n"))
		})

		It("loops forever until bounded", func() {
			m := vm.New(assemble("loop: PUSH 1\nJMP loop").Code, nil)
			res, err := m.RunContext(context.Background(), 1000)
			Expect(err).To(MatchError(vm.ErrStepLimit))
			Expect(res.State).To(Equal(vm.Running))
			Expect(res.Steps).To(Equal(uint64(1000)))
			Expect(m.Snapshot().Stack).To(HaveLen(500))
		})

		It("faults on RET with an empty call stack", func() {
			m := vm.New([]byte{byte(op.Ret)}, nil)
			res := m.Run()
			Expect(res.State).To(Equal(vm.Faulted))
			expectFault(m, vm.CallStackUnderflow, 0)
		})

		It("faults on division by zero with both operands on the stack", func() {
			m, out := run("PUSH 7\nPUSH 0\nDIV")
			expectFault(m, vm.DivisionByZero, 18)
			expectStack(m, 7, 0)
			Expect(out).To(BeEmpty())
		})
	})

	Context("Operations", func() {
		DescribeTable("leave the expected stack",
			func(src string, want ...int64) {
				m, _ := run(src + "\nHALT")
				Expect(m.State()).To(Equal(vm.Halted), "fault: %v", m.Fault())
				expectStack(m, want...)
			},
			Entry("PUSH", "PUSH -3", int64(-3)),
			Entry("POP", "PUSH 1\nPOP"),
			Entry("DUP", "PUSH 5\nDUP", int64(5), int64(5)),
			Entry("SWAP", "PUSH 1\nPUSH 2\nSWAP", int64(2), int64(1)),
			Entry("ADD wraps", "PUSH 0x7fffffffffffffff\nPUSH 1\nADD", int64(-1<<63)),
			Entry("SUB", "PUSH 10\nPUSH 3\nSUB", int64(7)),
			Entry("MUL", "PUSH -4\nPUSH 3\nMUL", int64(-12)),
			Entry("DIV truncates", "PUSH -7\nPUSH 2\nDIV", int64(-3)),
			Entry("DIV min by -1", "PUSH -0x8000000000000000\nPUSH -1\nDIV", int64(-1<<63)),
			Entry("MOD keeps the dividend sign", "PUSH -7\nPUSH 2\nMOD", int64(-1)),
			Entry("NEG", "PUSH 5\nNEG", int64(-5)),
			Entry("AND", "PUSH 12\nPUSH 10\nAND", int64(8)),
			Entry("OR", "PUSH 12\nPUSH 10\nOR", int64(14)),
			Entry("XOR", "PUSH 12\nPUSH 10\nXOR", int64(6)),
			Entry("NOT", "PUSH 0\nNOT", int64(-1)),
			Entry("SHL", "PUSH 1\nPUSH 4\nSHL", int64(16)),
			Entry("SHL masks the count", "PUSH 1\nPUSH 65\nSHL", int64(2)),
			Entry("SHR is arithmetic", "PUSH -16\nPUSH 2\nSHR", int64(-4)),
			Entry("EQ", "PUSH 3\nPUSH 3\nEQ", int64(1)),
			Entry("NE", "PUSH 3\nPUSH 3\nNE", int64(0)),
			Entry("LT", "PUSH 3\nPUSH 7\nLT", int64(1)),
			Entry("LE", "PUSH 7\nPUSH 7\nLE", int64(1)),
			Entry("GT", "PUSH 3\nPUSH 7\nGT", int64(0)),
			Entry("GE", "PUSH 3\nPUSH 7\nGE", int64(0)),
			Entry("NOP", "NOP"),
			Entry("JMP", "JMP skip\nPUSH 1\nskip: PUSH 2", int64(2)),
			Entry("JZ taken", "PUSH 0\nJZ yes\nPUSH 1\nHALT\nyes: PUSH 2", int64(2)),
			Entry("JZ not taken", "PUSH 5\nJZ yes\nPUSH 1\nHALT\nyes: PUSH 2", int64(1)),
			Entry("JNZ taken", "PUSH -1\nJNZ yes\nPUSH 1\nHALT\nyes: PUSH 2", int64(2)),
			Entry("CALL and RET", "PUSH 1\nCALL f\nPUSH 3\nHALT\nf: PUSH 2\nRET", int64(1), int64(2), int64(3)),
		)

		It("prints popped values", func() {
			m, out := run("PUSH -42\nOUTPUT-TOP\nPUSH 7\nOUTPUT\nHALT")
			Expect(m.State()).To(Equal(vm.Halted))
			Expect(out).To(Equal("-42\n7\n"))
			expectStack(m)
		})

		It("leaves the PC on HALT", func() {
			m, _ := run("NOP\nHALT")
			Expect(m.PC()).To(Equal(uint32(1)))
			Expect(m.Step()).To(Equal(vm.Halted))
			Expect(m.Steps()).To(Equal(uint64(2)))
		})

		It("faults on MOD by zero", func() {
			m, _ := run("PUSH 7\nPUSH 0\nMOD")
			expectFault(m, vm.ModuloByZero, 18)
			expectStack(m, 7, 0)
		})
	})

	Context("Stack underflow", func() {
		for _, oc := range op.OpCodeTable {
			if oc.Pops == 0 {
				continue
			}
			It("faults "+oc.Name+" with fewer than its operands", func() {
				var code []byte
				for i := range oc.Pops - 1 {
					code = op.Instruction{OpCode: op.OpCodeTable[op.Push], Operand: int64(i)}.AppendTo(code)
				}
				addr := uint32(len(code))
				code = op.Instruction{OpCode: oc, Operand: 0}.AppendTo(code)

				m := vm.New(code, nil)
				m.Run()
				expectFault(m, vm.StackUnderflow, addr)
				Expect(m.Snapshot().Stack).To(HaveLen(oc.Pops - 1))
			})
		}
	})

	Context("Invalid instructions", func() {
		DescribeTable("fault with InvalidInstruction",
			func(code []byte, addr uint32) {
				m := vm.New(code, nil)
				res := m.Run()
				Expect(res.State).To(Equal(vm.Faulted))
				expectFault(m, vm.InvalidInstruction, addr)
			},
			Entry("empty code", []byte{}, uint32(0)),
			Entry("unknown tag", []byte{0xff}, uint32(0)),
			Entry("truncated operand", []byte{byte(op.Push), 1, 2}, uint32(0)),
			Entry("jump inside an instruction", []byte{byte(op.Jmp), 1, 0, 0, 0}, uint32(1)),
			Entry("jump out of the code", []byte{byte(op.Jmp), 100, 0, 0, 0}, uint32(100)),
			Entry("running off the end", []byte{byte(op.Nop)}, uint32(1)),
			Entry("jump to the end", []byte{byte(op.Jmp), 5, 0, 0, 0}, uint32(5)),
		)

		It("marks instruction boundaries", func() {
			m := vm.New(assemble("PUSH 1\nCALL f\nf: HALT").Code, nil)
			Expect(m.IsBoundary(0)).To(BeTrue())
			Expect(m.IsBoundary(1)).To(BeFalse())
			Expect(m.IsBoundary(9)).To(BeTrue())
			Expect(m.IsBoundary(14)).To(BeTrue())
			Expect(m.IsBoundary(15)).To(BeFalse())
		})

		It("never panics on random code", func() {
			r := rand.New(rand.NewPCG(42, 1024))
			for range 500 {
				code := make([]byte, 1+r.IntN(64))
				for i := range code {
					// Bias towards valid tags.
					code[i] = byte(r.IntN(40))
				}
				m := vm.New(code, nil, vm.WithConfig(vm.Config{MaxStackDepth: 256, MaxCallDepth: 64}))
				Expect(func() {
					_, _ = m.RunContext(context.Background(), 10_000)
				}).NotTo(Panic())
				if m.State() == vm.Faulted {
					Expect(m.Fault()).NotTo(BeNil())
				}
			}
		})
	})

	Context("Resource bounds", func() {
		It("faults when the operand stack is full", func() {
			m, _ := run("PUSH 1\nPUSH 2\nPUSH 3\nHALT", vm.WithConfig(vm.Config{MaxStackDepth: 2}))
			expectFault(m, vm.StackOverflow, 18)
			expectStack(m, 1, 2)
		})

		It("faults when too many calls are pending", func() {
			m, _ := run("f: CALL f", vm.WithConfig(vm.Config{MaxCallDepth: 2}))
			expectFault(m, vm.CallStackOverflow, 0)
			Expect(m.Snapshot().Calls).To(HaveLen(2))
			Expect(m.Steps()).To(Equal(uint64(3)))
		})

		It("stops on a canceled context", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			m := vm.New(assemble("loop: JMP loop").Code, nil)
			res, err := m.RunContext(ctx, 0)
			Expect(err).To(MatchError(context.Canceled))
			Expect(res.State).To(Equal(vm.Running))
			Expect(res.Steps).To(BeZero())
		})
	})

	Context("Samples", func() {
		DescribeTable("produce the expected output",
			func(name, want string, state vm.State) {
				src, err := assets.Source(name)
				Expect(err).NotTo(HaveOccurred())
				m, out := run(src)
				Expect(m.State()).To(Equal(state))
				Expect(out).To(Equal(want))
			},
			Entry("hello", "hello", "5\n", vm.Halted),
			Entry("countdown", "countdown", "5\n4\n3\n2\n1\n", vm.Halted),
			Entry("factorial", "factorial", "3628800\n", vm.Halted),
			Entry("bits", "bits", "8\n16\n-4\n1\n-256\n2\n", vm.Halted),
			Entry("divzero", "divzero", "", vm.Faulted),
		)
	})

	Context("Debugging", func() {
		var (
			info     *op.DebugInfo
			code     []byte
			messages chan vm.Message
		)

		BeforeEach(func() {
			src, err := assets.Source("divzero")
			Expect(err).NotTo(HaveOccurred())
			_, prog, err := asm.Compile("divzero", src)
			Expect(err).NotTo(HaveOccurred())
			info = prog.DebugInfo()
			code = prog.Code()
			messages = make(chan vm.Message, 8)
		})

		It("continues to the next breakpoint", func() {
			m := vm.New(code, nil, vm.WithDebugInfo(info), vm.WithMessages(messages))
			Expect(m.Continue()).To(Equal(vm.Running))
			Expect(m.PC()).To(Equal(uint32(18)))
			Expect(messages).To(BeEmpty())

			Expect(m.Continue()).To(Equal(vm.Faulted))
			Expect(messages).To(Receive(Equal(vm.NewMessage(vm.MsgBreak, 18, "DIV"))))
			var msg vm.Message
			Expect(messages).To(Receive(&msg))
			Expect(msg.Type).To(Equal(vm.MsgFault))
			Expect(msg.Addr).To(Equal(uint32(18)))
		})

		It("sends output and halt messages", func() {
			m := vm.New(assemble("PUSH 5\nOUTPUT-TOP\nHALT").Code, nil, vm.WithMessages(messages))
			Expect(m.Run().State).To(Equal(vm.Halted))
			Expect(messages).To(Receive(Equal(vm.NewMessage(vm.MsgOutput, 9, "5"))))
			Expect(messages).To(Receive(Equal(vm.NewMessage(vm.MsgHalt, 10, ""))))
		})

		It("runs a bounded number of steps", func() {
			m := vm.New(code, nil)
			Expect(m.RunSteps(2)).To(Equal(vm.Running))
			Expect(m.PC()).To(Equal(uint32(18)))
			Expect(m.RunSteps(10)).To(Equal(vm.Faulted))
			Expect(m.Steps()).To(Equal(uint64(3)))
		})

		It("resets to the initial state", func() {
			out := &bytes.Buffer{}
			m := vm.New(assemble("PUSH 1\nCALL f\nHALT\nf: OUTPUT-TOP\nRET").Code, out)
			Expect(m.Run().State).To(Equal(vm.Halted))
			m.Reset()
			Expect(m.State()).To(Equal(vm.Running))
			Expect(m.PC()).To(BeZero())
			Expect(m.Steps()).To(BeZero())
			Expect(m.Run().State).To(Equal(vm.Halted))
			Expect(out.String()).To(Equal("1\n1\n"))
		})

		It("traces every step at debug level", func() {
			buf := &bytes.Buffer{}
			logger := log.New(buf)
			logger.SetLevel(log.DebugLevel)

			m := vm.New(code, nil, vm.WithDebugInfo(info), vm.WithLogger(logger))
			m.Run()
			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			// Three steps and the fault.
			Expect(lines).To(HaveLen(4))
			Expect(lines[0]).To(ContainSubstring("pc=0x0000"))
			Expect(lines[0]).To(ContainSubstring("line=2"))
			Expect(lines[3]).To(ContainSubstring("fault"))
		})

		It("ignores output write errors", func() {
			res := vm.Execute(assemble("PUSH 1\nOUTPUT-TOP\nHALT"), failingWriter{})
			Expect(res.State).To(Equal(vm.Halted))
		})
	})

	Context("Loading", func() {
		It("rejects invalid binaries", func() {
			_, err := vm.Load([]byte("nope"), nil)
			Expect(err).To(MatchError(op.ErrTruncatedBinary))

			data := assemble("HALT").Bytes()
			data[0] = 'X'
			_, err = vm.Load(data, nil)
			Expect(err).To(MatchError(op.ErrBadMagic))
		})

		It("runs a loaded binary", func() {
			out := &bytes.Buffer{}
			m, err := vm.Load(assemble("PUSH 3\nOUTPUT-TOP\nHALT").Bytes(), out)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Run().State).To(Equal(vm.Halted))
			Expect(out.String()).To(Equal("3\n"))
		})
	})
})
