package catalog

const tokenListCDN = "https://raw.githubusercontent.com/solana-labs/token-list/main/assets/mainnet"

// Well-known mints
const (
	MintSOL  = "So11111111111111111111111111111111111111112"
	MintUSDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	MintUSDT = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
	MintBONK = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	MintJUP  = "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"
	MintWIF  = "EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm"
)

// DefaultPresets returns the built-in token list in display order
func DefaultPresets() []Token {
	return []Token{
		{
			Symbol: "SOL", Mint: MintSOL, Decimals: 9, Color: "#9945FF", Name: "Solana",
			LogoURI: tokenListCDN + "/" + MintSOL + "/logo.png",
		},
		{
			Symbol: "USDC", Mint: MintUSDC, Decimals: 6, Color: "#2775CA", Name: "USD Coin",
			LogoURI: tokenListCDN + "/" + MintUSDC + "/logo.png",
		},
		{
			Symbol: "USDT", Mint: MintUSDT, Decimals: 6, Color: "#26A17B", Name: "Tether",
			LogoURI: tokenListCDN + "/" + MintUSDT + "/logo.svg",
		},
		{
			Symbol: "BONK", Mint: MintBONK, Decimals: 5, Color: "#F7931A", Name: "Bonk",
			LogoURI: "https://assets.coingecko.com/coins/images/28600/large/bonk.jpg",
		},
		{
			Symbol: "JUP", Mint: MintJUP, Decimals: 6, Color: "#14F195", Name: "Jupiter",
			LogoURI: "https://static.jup.ag/jup/icon.png",
		},
		{
			Symbol: "WIF", Mint: MintWIF, Decimals: 6, Color: "#E0B354", Name: "dogwifhat",
			LogoURI: "https://assets.coingecko.com/coins/images/33566/large/dogwifhat.jpg",
		},
	}
}
