package eth

const (
	AcceptedProposalEvent = "AcceptedBTCProposalEvent"
	TransferMethod        = "transfer"
)

// DaoABI holds the proposal event of the DAO contract.
const DaoABI = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": false, "internalType": "uint256", "name": "proposalId", "type": "uint256"},
			{"indexed": false, "internalType": "string", "name": "btcAddress", "type": "string"},
			{"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "AcceptedBTCProposalEvent",
		"type": "event"
	}
]`

// Erc20ABI holds the ERC20 transfer method.
const Erc20ABI = `[
	{
		"constant": false,
		"inputs": [
			{"name": "_to", "type": "address"},
			{"name": "_value", "type": "uint256"}
		],
		"name": "transfer",
		"outputs": [{"name": "", "type": "bool"}],
		"payable": false,
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`
