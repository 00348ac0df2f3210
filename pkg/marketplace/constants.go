package marketplace

const (
	operationMint      = "mint"
	operationTransfer  = "transfer"
	operationSetPrice  = "set_price"
	operationDetails   = "get_nft"
	operationByOwner   = "get_nfts_by_owner"
	operationByCreator = "get_nfts_by_creator"
	operationAll       = "get_all_nfts"
	operationBalances  = "get_balances"
	operationFund      = "fund_account"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	stroopsExponent      = 7
	maxRoyaltyPercentage = 100
	defaultPageLimit     = 20
	maxPageLimit         = 100
	stellarAddressLength = 56
	stellarAccountPrefix = "G"
	stellarAlphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"
)
