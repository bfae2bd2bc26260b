package layout

import (
	"ix-decoder-sol/internal/consts"
	"ix-decoder-sol/internal/discriminator"

	sdksystem "github.com/blocto/solana-go-sdk/program/system"
	sdktoken "github.com/blocto/solana-go-sdk/program/token"
)

// BuiltinLayouts 返回内置 Program 的解码规则。每次调用返回新切片，调用方可自由追加。
func BuiltinLayouts() []ProgramLayout {
	tokenRules := splTokenRules()
	return []ProgramLayout{
		systemLayout(),
		{
			Family:    consts.FamilySplToken,
			ProgramID: consts.TokenProgram,
			Opcode:    ByteOpcode(0),
			Rules:     tokenRules,
		},
		// Token2022 与 SplToken 共用同一份规则（前 19 个指令编号一致）
		{
			Family:    consts.FamilyToken2022,
			ProgramID: consts.TokenProgram2022,
			Opcode:    ByteOpcode(0),
			Rules:     tokenRules,
		},
		computeBudgetLayout(),
		raydiumV4Layout(),
		raydiumCLMMLayout(),
		raydiumCPMMLayout(),
		orcaWhirlpoolLayout(),
	}
}

// System Program：opcode 为前 4 字节小端 u32
// 来源: https://github.com/solana-labs/solana/blob/master/sdk/program/src/system_instruction.rs
func systemLayout() ProgramLayout {
	op := func(ins sdksystem.Instruction) uint64 { return uint64(ins) }
	return ProgramLayout{
		Family:    consts.FamilySystem,
		ProgramID: consts.SystemProgram,
		Opcode:    U32Opcode(),
		Rules: []OpcodeRule{
			{Opcode: op(sdksystem.InstructionCreateAccount), Name: "CreateAccount", Fields: []FieldRule{
				Lamports("lamports", 4), U64("space", 12), Address("owner", 20),
			}},
			{Opcode: op(sdksystem.InstructionAssign), Name: "Assign", Fields: []FieldRule{
				Address("owner", 4),
			}},
			{Opcode: op(sdksystem.InstructionTransfer), Name: "Transfer", Fields: []FieldRule{
				Lamports("lamports", 4),
			}},
			// seed 为变长字符串，只提取定长部分
			{Opcode: op(sdksystem.InstructionCreateAccountWithSeed), Name: "CreateAccountWithSeed", Fields: []FieldRule{
				Address("base", 4),
			}},
			{Opcode: op(sdksystem.InstructionAdvanceNonceAccount), Name: "AdvanceNonceAccount"},
			{Opcode: op(sdksystem.InstructionWithdrawNonceAccount), Name: "WithdrawNonceAccount", Fields: []FieldRule{
				Lamports("lamports", 4),
			}},
			{Opcode: op(sdksystem.InstructionInitializeNonceAccount), Name: "InitializeNonceAccount", Fields: []FieldRule{
				Address("authority", 4),
			}},
			{Opcode: op(sdksystem.InstructionAuthorizeNonceAccount), Name: "AuthorizeNonceAccount", Fields: []FieldRule{
				Address("authority", 4),
			}},
			{Opcode: op(sdksystem.InstructionAllocate), Name: "Allocate", Fields: []FieldRule{
				U64("space", 4),
			}},
			{Opcode: op(sdksystem.InstructionAllocateWithSeed), Name: "AllocateWithSeed", Fields: []FieldRule{
				Address("base", 4),
			}},
			{Opcode: op(sdksystem.InstructionAssignWithSeed), Name: "AssignWithSeed", Fields: []FieldRule{
				Address("base", 4),
			}},
			{Opcode: op(sdksystem.InstructionTransferWithSeed), Name: "TransferWithSeed", Fields: []FieldRule{
				Lamports("lamports", 4),
			}},
			// UpgradeNonceAccount 为后加入的指令，sdk 未定义常量
			{Opcode: 12, Name: "UpgradeNonceAccount"},
		},
	}
}

// SplToken: https://github.com/solana-program/token/blob/main/program/src/instruction.rs
func splTokenRules() []OpcodeRule {
	op := func(ins sdktoken.Instruction) uint64 { return uint64(ins) }

	// amount 在 [1:9]，Checked 版本在 [9] 追加 decimals
	amount := []FieldRule{U64("amount", 1)}
	amountChecked := []FieldRule{U64("amount", 1), U8("decimals", 9)}

	return []OpcodeRule{
		{Opcode: op(sdktoken.InstructionInitializeMint), Name: "InitializeMint", Fields: []FieldRule{
			U8("decimals", 1), Address("mint_authority", 2),
		}},
		{Opcode: op(sdktoken.InstructionInitializeAccount), Name: "InitializeAccount"},
		{Opcode: op(sdktoken.InstructionInitializeMultisig), Name: "InitializeMultisig", Fields: []FieldRule{
			U8("m", 1),
		}},
		{Opcode: op(sdktoken.InstructionTransfer), Name: "Transfer", Fields: amount},
		{Opcode: op(sdktoken.InstructionApprove), Name: "Approve", Fields: amount},
		{Opcode: op(sdktoken.InstructionRevoke), Name: "Revoke"},
		{Opcode: op(sdktoken.InstructionSetAuthority), Name: "SetAuthority", Fields: []FieldRule{
			U8("authority_type", 1),
		}},
		{Opcode: op(sdktoken.InstructionMintTo), Name: "MintTo", Fields: amount},
		{Opcode: op(sdktoken.InstructionBurn), Name: "Burn", Fields: amount},
		{Opcode: op(sdktoken.InstructionCloseAccount), Name: "CloseAccount"},
		{Opcode: op(sdktoken.InstructionFreezeAccount), Name: "FreezeAccount"},
		{Opcode: op(sdktoken.InstructionThawAccount), Name: "ThawAccount"},
		{Opcode: op(sdktoken.InstructionTransferChecked), Name: "TransferChecked", Fields: amountChecked},
		{Opcode: op(sdktoken.InstructionApproveChecked), Name: "ApproveChecked", Fields: amountChecked},
		{Opcode: op(sdktoken.InstructionMintToChecked), Name: "MintToChecked", Fields: amountChecked},
		{Opcode: op(sdktoken.InstructionBurnChecked), Name: "BurnChecked", Fields: amountChecked},
		// Layout: owner 在 Data[1:33]
		{Opcode: op(sdktoken.InstructionInitializeAccount2), Name: "InitializeAccount2", Fields: []FieldRule{
			Address("owner", 1),
		}},
		{Opcode: op(sdktoken.InstructionSyncNative), Name: "SyncNative"},
		{Opcode: op(sdktoken.InstructionInitializeAccount3), Name: "InitializeAccount3", Fields: []FieldRule{
			Address("owner", 1),
		}},
	}
}

// ComputeBudget: https://github.com/solana-labs/solana/blob/master/sdk/src/compute_budget.rs
func computeBudgetLayout() ProgramLayout {
	return ProgramLayout{
		Family:    consts.FamilyComputeBudget,
		ProgramID: consts.ComputeBudgetProgram,
		Opcode:    ByteOpcode(0),
		Rules: []OpcodeRule{
			{Opcode: 0, Name: "RequestUnitsDeprecated", Fields: []FieldRule{
				U32("units", 1), U32("additional_fee", 5),
			}},
			{Opcode: 1, Name: "RequestHeapFrame", Fields: []FieldRule{U32("bytes", 1)}},
			{Opcode: 2, Name: "SetComputeUnitLimit", Fields: []FieldRule{U32("units", 1)}},
			// 单位为 micro-lamports
			{Opcode: 3, Name: "SetComputeUnitPrice", Fields: []FieldRule{U64("micro_lamports", 1)}},
			{Opcode: 4, Name: "SetLoadedAccountsDataSizeLimit", Fields: []FieldRule{U32("bytes", 1)}},
		},
	}
}

// RaydiumV4 来源: https://github.com/raydium-io/raydium-amm/blob/master/program/src/instruction.rs
func raydiumV4Layout() ProgramLayout {
	return ProgramLayout{
		Family:    consts.FamilyRaydiumV4,
		ProgramID: consts.RaydiumV4Program,
		Opcode:    ByteOpcode(0),
		Rules: []OpcodeRule{
			{Opcode: 0, Name: "Initialize", Fields: []FieldRule{
				U8("nonce", 1), U64("open_time", 2),
			}},
			{Opcode: 1, Name: "Initialize2", Fields: []FieldRule{
				U8("nonce", 1), U64("open_time", 2), U64("init_pc_amount", 10), U64("init_coin_amount", 18),
			}},
			{Opcode: 3, Name: "Deposit", Fields: []FieldRule{
				U64("max_coin_amount", 1), U64("max_pc_amount", 9), U64("base_side", 17),
			}},
			{Opcode: 4, Name: "Withdraw", Fields: []FieldRule{
				U64("amount", 1),
			}},
			{Opcode: 9, Name: "SwapBaseIn", Fields: []FieldRule{
				U64("amount_in", 1), U64("minimum_amount_out", 9),
			}},
			{Opcode: 11, Name: "SwapBaseOut", Fields: []FieldRule{
				U64("max_amount_in", 1), U64("amount_out", 9),
			}},
		},
	}
}

// anchorRule 以 Anchor 方法名计算 opcode（8 字节 discriminator 的大端值）
func anchorRule(method, name string, fields ...FieldRule) OpcodeRule {
	return OpcodeRule{
		Opcode: discriminator.Global(method).Uint64(),
		Name:   name,
		Fields: fields,
	}
}

// RaydiumCLMM 为 Anchor 程序，参数从第 8 字节开始
// 来源: https://github.com/raydium-io/raydium-clmm/blob/master/programs/amm/src/lib.rs
func raydiumCLMMLayout() ProgramLayout {
	liquidityChange := func(a, b string) []FieldRule {
		return []FieldRule{U128("liquidity", 8), U64(a, 24), U64(b, 32)}
	}
	return ProgramLayout{
		Family:    consts.FamilyRaydiumCLMM,
		ProgramID: consts.RaydiumCLMMProgram,
		Opcode:    DiscriminatorOpcode(),
		Rules: []OpcodeRule{
			anchorRule("create_pool", "CreatePool", U128("sqrt_price_x64", 8), U64("open_time", 24)),
			anchorRule("open_position_v2", "OpenPositionV2",
				I32("tick_lower_index", 8), I32("tick_upper_index", 12),
				I32("tick_array_lower_start_index", 16), I32("tick_array_upper_start_index", 20),
				U128("liquidity", 24), U64("amount_0_max", 40), U64("amount_1_max", 48)),
			anchorRule("open_position_with_token22_nft", "OpenPositionWithToken22Nft",
				I32("tick_lower_index", 8), I32("tick_upper_index", 12),
				I32("tick_array_lower_start_index", 16), I32("tick_array_upper_start_index", 20),
				U128("liquidity", 24), U64("amount_0_max", 40), U64("amount_1_max", 48)),
			anchorRule("increase_liquidity", "IncreaseLiquidity", liquidityChange("amount_0_max", "amount_1_max")...),
			anchorRule("increase_liquidity_v2", "IncreaseLiquidityV2", liquidityChange("amount_0_max", "amount_1_max")...),
			anchorRule("decrease_liquidity", "DecreaseLiquidity", liquidityChange("amount_0_min", "amount_1_min")...),
			anchorRule("decrease_liquidity_v2", "DecreaseLiquidityV2", liquidityChange("amount_0_min", "amount_1_min")...),
			anchorRule("swap", "Swap",
				U64("amount", 8), U64("other_amount_threshold", 16), U128("sqrt_price_limit_x64", 24), Flag("is_base_input", 40)),
			anchorRule("swap_v2", "SwapV2",
				U64("amount", 8), U64("other_amount_threshold", 16), U128("sqrt_price_limit_x64", 24), Flag("is_base_input", 40)),
		},
	}
}

// RaydiumCPMM 的 opcode 为第 8 字节（单字节），参数紧随其后。
// 最小长度必须覆盖 opcode 所在位置（≥ 9），否则读取 Data[8] 越界。
func raydiumCPMMLayout() ProgramLayout {
	return ProgramLayout{
		Family:    consts.FamilyRaydiumCPMM,
		ProgramID: consts.RaydiumCPMMProgram,
		Opcode:    ByteOpcode(8),
		MinLength: 9,
		Rules: []OpcodeRule{
			{Opcode: 0, Name: "CreateAmmConfig"},
			{Opcode: 1, Name: "UpdateAmmConfig"},
			{Opcode: 2, Name: "UpdatePoolStatus"},
			{Opcode: 3, Name: "CollectProtocolFee"},
			{Opcode: 4, Name: "CollectFundFee"},
			{Opcode: 5, Name: "Initialize", Fields: []FieldRule{
				U64("init_amount_0", 9), U64("init_amount_1", 17), U64("open_time", 25),
			}},
			{Opcode: 6, Name: "Deposit", Fields: []FieldRule{
				U64("lp_token_amount", 9), U64("maximum_token_0_amount", 17), U64("maximum_token_1_amount", 25),
			}},
			{Opcode: 7, Name: "Withdraw", Fields: []FieldRule{
				U64("lp_token_amount", 9), U64("minimum_token_0_amount", 17), U64("minimum_token_1_amount", 25),
			}},
			{Opcode: 8, Name: "SwapBaseInput", Fields: []FieldRule{
				U64("amount_in", 9), U64("minimum_amount_out", 17),
			}},
			{Opcode: 9, Name: "SwapBaseOutput", Fields: []FieldRule{
				U64("max_amount_in", 9), U64("amount_out", 17),
			}},
		},
	}
}

// OrcaWhirlpool: https://github.com/orca-so/whirlpools/blob/main/programs/whirlpool/src/lib.rs
func orcaWhirlpoolLayout() ProgramLayout {
	swapFields := []FieldRule{
		U64("amount", 8), U64("other_amount_threshold", 16), U128("sqrt_price_limit", 24),
		Flag("amount_specified_is_input", 40), Flag("a_to_b", 41),
	}
	return ProgramLayout{
		Family:    consts.FamilyOrcaWhirlpool,
		ProgramID: consts.OrcaWhirlpoolProgram,
		Opcode:    DiscriminatorOpcode(),
		Rules: []OpcodeRule{
			anchorRule("swap", "Swap", swapFields...),
			anchorRule("swap_v2", "SwapV2", swapFields...),
			anchorRule("initialize_pool", "InitializePool", U16("tick_spacing", 9), U128("initial_sqrt_price", 11)),
			anchorRule("initialize_pool_v2", "InitializePoolV2", U16("tick_spacing", 8), U128("initial_sqrt_price", 10)),
			anchorRule("open_position", "OpenPosition", U8("position_bump", 8), I32("tick_lower_index", 9), I32("tick_upper_index", 13)),
			anchorRule("increase_liquidity", "IncreaseLiquidity", U128("liquidity_amount", 8), U64("token_max_a", 24), U64("token_max_b", 32)),
			anchorRule("increase_liquidity_v2", "IncreaseLiquidityV2", U128("liquidity_amount", 8), U64("token_max_a", 24), U64("token_max_b", 32)),
			anchorRule("decrease_liquidity", "DecreaseLiquidity", U128("liquidity_amount", 8), U64("token_min_a", 24), U64("token_min_b", 32)),
			anchorRule("decrease_liquidity_v2", "DecreaseLiquidityV2", U128("liquidity_amount", 8), U64("token_min_a", 24), U64("token_min_b", 32)),
		},
	}
}
