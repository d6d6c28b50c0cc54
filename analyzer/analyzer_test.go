package analyzer

import (
	"reflect"
	"testing"
)

const vaultSample = `
contract YieldVault {
    mapping(address => uint256) public balances;
    uint256 public totalAssets;
    address public owner;

    modifier onlyOwner() {
        require(msg.sender == owner, "not owner");
        _;
    }

    function deposit(uint256 amount) external {
        token.transferFrom(msg.sender, address(this), amount);
        balances[msg.sender] += amount;
        totalAssets += amount;
    }

    function withdraw(uint256 amount) external {
        (bool success, ) = msg.sender.call{value: amount}("");
        require(success, "transfer failed");
        balances[msg.sender] -= amount;
    }

    function setFee(uint256 fee) external onlyOwner {
        feeBps = fee;
    }
}
`

func newTestAnalyzer(t *testing.T, opts ...Option) *Analyzer {
	t.Helper()
	a, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

func TestAnalyzer_Deterministic(t *testing.T) {
	a := newTestAnalyzer(t)

	first := a.Analyze(vaultSample)
	for i := 0; i < 10; i++ {
		next := a.Analyze(vaultSample)
		if !reflect.DeepEqual(first, next) {
			t.Fatalf("run %d produced a different signal:\nfirst: %+v\nnext:  %+v", i, first, next)
		}
	}
}

func TestAnalyzer_VaultSample(t *testing.T) {
	a := newTestAnalyzer(t)
	sig := a.Analyze(vaultSample)

	if sig.ContractName != "YieldVault" {
		t.Errorf("ContractName = %q, want YieldVault", sig.ContractName)
	}
	if len(sig.Functions) != 3 {
		t.Fatalf("Functions = %v, want 3 declarations", sig.FunctionNames())
	}
	if sig.Functions[0].Name != "deposit" || sig.Functions[1].Name != "withdraw" || sig.Functions[2].Name != "setFee" {
		t.Errorf("function order = %v", sig.FunctionNames())
	}
	if sig.FunctionType != "deposit" {
		t.Errorf("FunctionType = %q, want deposit (first-match)", sig.FunctionType)
	}
	if sig.ProtocolType != "Vault" {
		t.Errorf("ProtocolType = %q, want Vault", sig.ProtocolType)
	}
	if !sig.HasRisk("Reentrancy") {
		t.Errorf("RiskTags = %v, want Reentrancy to fire", sig.RiskTags)
	}
	if !sig.HasRisk("Balance Accounting") {
		t.Errorf("RiskTags = %v, want Balance Accounting to co-fire", sig.RiskTags)
	}
	// The sample declares a modifier, so the missing-access-control
	// condition must suppress that rule.
	if sig.HasRisk("Missing Access Control") {
		t.Errorf("Missing Access Control fired despite declared modifier: %v", sig.RiskTags)
	}
	if sig.LowConfidence {
		t.Errorf("LowConfidence = true for a rich sample (confidence %g)", sig.Confidence)
	}
}

func TestAnalyzer_EmptyInput(t *testing.T) {
	a := newTestAnalyzer(t)

	for _, input := range []string{"", "   ", "not solidity at all", "}{((", "// just a comment"} {
		sig := a.Analyze(input)
		if len(sig.Functions) != 0 {
			t.Errorf("Analyze(%q) detected functions %v in junk input", input, sig.FunctionNames())
		}
		if !sig.LowConfidence {
			t.Errorf("Analyze(%q) LowConfidence = false, want true for unrecognizable input", input)
		}
	}
}

func TestAnalyzer_MissingAccessControlCondition(t *testing.T) {
	a := newTestAnalyzer(t)

	unguarded := `
contract Config {
    function setOracle(address o) external {
        oracle = o;
    }
}
`
	sig := a.Analyze(unguarded)
	if !sig.HasRisk("Missing Access Control") {
		t.Errorf("RiskTags = %v, want Missing Access Control on unguarded setter", sig.RiskTags)
	}

	guarded := `
contract Config {
    modifier onlyOwner() { _; }

    function setOracle(address o) external {
        oracle = o;
    }
}
`
	sig = a.Analyze(guarded)
	if sig.HasRisk("Missing Access Control") {
		t.Errorf("RiskTags = %v, rule fired despite declared modifier", sig.RiskTags)
	}
}

func TestAnalyzer_InterfaceThreshold(t *testing.T) {
	a := newTestAnalyzer(t)

	// 4 of 5 ERC20 signatures (80%) meets the threshold.
	conforming := `
contract Token {
    function totalSupply() external view returns (uint256) {}
    function balanceOf(address who) external view returns (uint256) {}
    function transfer(address to, uint256 amount) external returns (bool) {}
    function transferFrom(address from, address to, uint256 amount) external returns (bool) {}
}
`
	sig := a.Analyze(conforming)
	if !contains(sig.InterfaceTags, "ERC20") {
		t.Errorf("InterfaceTags = %v, want ERC20 at 4/5 signatures", sig.InterfaceTags)
	}

	// 3 of 5 signatures (60%) stays below the threshold, no partial tag.
	partial := `
contract Almost {
    function totalSupply() external view returns (uint256) {}
    function balanceOf(address who) external view returns (uint256) {}
    function transferFrom(address from, address to, uint256 amount) external returns (bool) {}
}
`
	sig = a.Analyze(partial)
	if contains(sig.InterfaceTags, "ERC20") {
		t.Errorf("InterfaceTags = %v, 3/5 signatures must not be tagged", sig.InterfaceTags)
	}
}

func TestAnalyzer_ExternalCallBoundary(t *testing.T) {
	a := newTestAnalyzer(t)

	sample := `
contract Router {
    function route(uint256 amount) external {
        require(amount > 0, "zero");
        token.transferFrom(msg.sender, address(this), amount);
        pool.swap(amount);
        abi.encodePacked(amount);
        Router.helper(amount);
    }
}
`
	sig := a.Analyze(sample)

	want := []string{"token.transferFrom", "pool.swap"}
	if !reflect.DeepEqual(sig.ExternalCalls, want) {
		t.Errorf("ExternalCalls = %v, want %v", sig.ExternalCalls, want)
	}
	if sig.ExternalCallCount != 2 {
		t.Errorf("ExternalCallCount = %d, want 2", sig.ExternalCallCount)
	}
}

func TestAnalyzer_ExternalCallCap(t *testing.T) {
	a := newTestAnalyzer(t)

	code := ""
	for _, r := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		code += r + ".poke(1);\n"
	}
	sig := a.Analyze(code)

	if len(sig.ExternalCalls) != 10 {
		t.Errorf("ExternalCalls length = %d, want display cap of 10", len(sig.ExternalCalls))
	}
	if sig.ExternalCallCount != 12 {
		t.Errorf("ExternalCallCount = %d, want full count of 12", sig.ExternalCallCount)
	}
}

func TestAnalyzer_KeywordsSortedAndCapped(t *testing.T) {
	a := newTestAnalyzer(t)
	sig := a.Analyze(vaultSample)

	if len(sig.Keywords) > 5 {
		t.Errorf("Keywords = %v, want at most 5", sig.Keywords)
	}
	for i := 1; i < len(sig.Keywords); i++ {
		if sig.Keywords[i-1] > sig.Keywords[i] {
			t.Errorf("Keywords not sorted: %v", sig.Keywords)
		}
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
