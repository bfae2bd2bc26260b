package consts

// 程序族名称，Registry 中每个 ProgramLayout 以此标识解析规则来源
const (
	FamilySystem        = "System"
	FamilySplToken      = "SplToken"
	FamilyToken2022     = "Token2022"
	FamilyComputeBudget = "ComputeBudget"
	FamilyRaydiumV4     = "RaydiumV4"
	FamilyRaydiumCLMM   = "RaydiumCLMM"
	FamilyRaydiumCPMM   = "RaydiumCPMM"
	FamilyOrcaWhirlpool = "OrcaWhirlpool"
)

// LamportsPerSOL SOL 与 lamports 的换算单位（10^9）
const (
	LamportsPerSOL  uint64 = 1_000_000_000
	LamportDecimals        = 9
)
